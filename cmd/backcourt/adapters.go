package main

import (
	"context"
	"fmt"
)

func runAdapters(_ context.Context, args []string) error {
	fs, configFile := newFlagSet("adapters")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := bootstrap(fs, *configFile)
	if err != nil {
		return err
	}
	defer a.log.Sync() //nolint:errcheck

	all := a.registry.All()
	if len(all) == 0 {
		fmt.Println("No adapters configured.")
		return nil
	}

	fmt.Printf("%-20s %-10s %-8s %s\n", "NAME", "MODE", "ENABLED", "ADDRESS")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, site := range all {
		fmt.Printf("%-20s %-10s %-8t %s\n",
			site.Name,
			site.Mode(),
			site.EnabledValue(),
			site.Address,
		)
	}
	return nil
}
