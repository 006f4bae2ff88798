package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sbrito346/school-project/internal/directory"
	"github.com/sbrito346/school-project/internal/service/agenda"
	"github.com/sbrito346/school-project/internal/service/appointments"
	"github.com/sbrito346/school-project/internal/service/reports"
)

func init() {
	var kind string
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print a summary report (type_month, customer_type, contact)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, h, _, err := loadDirectory(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()
			return writeReport(cmd.OutOrStdout(), dir, kind)
		},
	}
	reportCmd.Flags().StringVarP(&kind, "kind", "k", "type_month", "Report kind")
	rootCmd.AddCommand(reportCmd)

	var at string
	var window time.Duration
	upcomingCmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List appointments starting soon",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, h, cfg, err := loadDirectory(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			now := time.Now()
			if at != "" {
				if now, err = time.ParseInLocation(appointments.DateTimeLayout, at, dir.Location()); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}
			if window == 0 {
				window = cfg.UpcomingWindow
			}
			return writeUpcoming(cmd.OutOrStdout(), dir, now, window)
		},
	}
	upcomingCmd.Flags().StringVar(&at, "at", "", "Reference time (yyyy-MM-dd HH:mm:ss); defaults to now")
	upcomingCmd.Flags().DurationVarP(&window, "window", "w", 0, "Lookahead; defaults to SCHEDULER_SCHEDULING_UPCOMING_WINDOW")
	rootCmd.AddCommand(upcomingCmd)
}

func writeReport(out io.Writer, dir *directory.Directory, kind string) error {
	appts := dir.Appointments()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	switch kind {
	case "type_month":
		fmt.Fprintln(tw, "TYPE\tMONTH\tCOUNT")
		for _, r := range reports.ByTypeAndMonth(appts, dir.Location()) {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Type, r.Month, r.Count)
		}
	case "customer_type":
		rows, err := reports.ByCustomerAndType(appts, dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "CUSTOMER\tTYPE\tCOUNT")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", r.CustomerName, r.Type, r.Count)
		}
	case "contact":
		rows, err := reports.ByContact(appts, dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "CONTACT\tID\tTITLE\tTYPE\tSTART\tEND\tCUSTOMER")
		for _, r := range rows {
			for _, a := range r.Appointments {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%d\n", r.ContactName, a.ID, a.Title, a.Type,
					a.Start.Format(appointments.DateTimeLayout), a.End.Format(appointments.DateTimeLayout), a.CustomerID)
			}
		}
	default:
		return fmt.Errorf("unknown report kind %q", kind)
	}
	return tw.Flush()
}

func writeUpcoming(out io.Writer, dir *directory.Directory, now time.Time, window time.Duration) error {
	upcoming := agenda.Upcoming(dir.Customers(), now, window)
	if len(upcoming) == 0 {
		_, err := fmt.Fprintln(out, "no upcoming appointments")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tTYPE\tCUSTOMER\tUSER")
	for _, a := range upcoming {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", a.ID, a.Start.In(dir.Location()).Format(appointments.DateTimeLayout), a.Type, a.CustomerID, a.UserID)
	}
	return tw.Flush()
}
