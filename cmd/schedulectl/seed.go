package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sbrito346/school-project/internal/domain"
	"github.com/sbrito346/school-project/internal/session"
	"github.com/sbrito346/school-project/internal/store"
)

var seedDivisions = map[string][]string{
	"U.S":    {"Arizona", "California", "New York", "Ohio", "Texas"},
	"UK":     {"England", "Scotland", "Wales", "Northern Ireland"},
	"Canada": {"Alberta", "British Columbia", "Ontario", "Québec"},
}

var seedCountries = []string{"U.S", "UK", "Canada"}

var seedContacts = []domain.Contact{
	{Name: "Anika Costa", Email: "acoasta@company.com"},
	{Name: "Daniel Garcia", Email: "dgarcia@company.com"},
	{Name: "Li Lee", Email: "llee@company.com"},
}

func init() {
	var userName, password string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert reference data and a login account",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, _, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()
			return runSeed(cmd.Context(), h.Tx, userName, password, cmd.OutOrStdout())
		},
	}
	seedCmd.Flags().StringVarP(&userName, "user", "u", "", "Login name to create")
	seedCmd.Flags().StringVarP(&password, "password", "p", "", "Password for --user")
	rootCmd.AddCommand(seedCmd)
}

// runSeed inserts whatever reference rows are missing in one transaction.
// Rows that already exist by name are left alone.
func runSeed(ctx context.Context, tx store.Transactor, userName, password string, out io.Writer) error {
	if (userName == "") != (password == "") {
		return errors.New("--user and --password must be given together")
	}
	var hash string
	if userName != "" {
		var err error
		if hash, err = session.HashPassword(password); err != nil {
			return err
		}
	}

	var added seedCounts
	err := tx.InTx(ctx, func(ctx context.Context, s store.Set) error {
		countries, err := s.Countries.LoadAll(ctx)
		if err != nil {
			return err
		}
		countryIDs := map[string]int64{}
		for _, c := range countries {
			countryIDs[c.Name] = c.ID
		}
		for _, name := range seedCountries {
			if _, ok := countryIDs[name]; ok {
				continue
			}
			id, err := s.Countries.Insert(ctx, domain.Country{Name: name})
			if err != nil {
				return fmt.Errorf("insert country %s: %w", name, err)
			}
			countryIDs[name] = id
			added.countries++
		}

		divisions, err := s.Divisions.LoadAll(ctx)
		if err != nil {
			return err
		}
		haveDivision := map[string]bool{}
		for _, d := range divisions {
			haveDivision[fmt.Sprintf("%d/%s", d.CountryID, d.Name)] = true
		}
		for _, country := range seedCountries {
			for _, name := range seedDivisions[country] {
				cid := countryIDs[country]
				if haveDivision[fmt.Sprintf("%d/%s", cid, name)] {
					continue
				}
				if _, err := s.Divisions.Insert(ctx, domain.Division{Name: name, CountryID: cid}); err != nil {
					return fmt.Errorf("insert division %s: %w", name, err)
				}
				added.divisions++
			}
		}

		contacts, err := s.Contacts.LoadAll(ctx)
		if err != nil {
			return err
		}
		haveContact := map[string]bool{}
		for _, c := range contacts {
			haveContact[c.Name] = true
		}
		for _, c := range seedContacts {
			if haveContact[c.Name] {
				continue
			}
			if _, err := s.Contacts.Insert(ctx, c); err != nil {
				return fmt.Errorf("insert contact %s: %w", c.Name, err)
			}
			added.contacts++
		}

		if userName == "" {
			return nil
		}
		users, err := s.Users.LoadAll(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			if u.Name == userName {
				return nil
			}
		}
		if _, err := s.Users.Insert(ctx, domain.User{Name: userName, PasswordHash: hash}); err != nil {
			return fmt.Errorf("insert user %s: %w", userName, err)
		}
		added.users++
		return nil
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "seeded countries=%d divisions=%d contacts=%d users=%d\n",
		added.countries, added.divisions, added.contacts, added.users)
	return nil
}

type seedCounts struct {
	countries, divisions, contacts, users int
}
