package main

import (
	"fmt"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/ARTM2000/grove"
	"github.com/ARTM2000/grove/internal/demo"
)

type inspectCmd struct {
	raw  bool
	user int
}

func (i *inspectCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Resolve the demo application and print every cached plan",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&i.raw, "raw", false, "dump plans with go-spew")
	cmd.Flags().IntVar(&i.user, "user", 1, "user id to welcome")
	return cmd
}

func (i *inspectCmd) run(c *cli, cmd *cobra.Command, _ []string) error {
	root, err := c.provider()
	if err != nil {
		return err
	}
	defer root.Dispose()

	lines, err := demo.Run(root, i.user)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
	fmt.Fprintln(out)

	plans := root.Plans()
	sort.Slice(plans, func(a, b int) bool { return plans[a].ServiceType < plans[b].ServiceType })

	if i.raw {
		spew.Fdump(out, plans)
		return nil
	}
	printPlans(cmd, plans)
	return nil
}

func printPlans(cmd *cobra.Command, plans []grove.PlanInfo) {
	out := cmd.OutOrStdout()
	for _, p := range plans {
		state := "interpreted"
		if p.Specialized {
			state = "specialized"
		}
		fmt.Fprintf(out, "# %s (%s, %d calls)\n", p.ServiceType, state, p.Calls)
		if !p.Registered {
			fmt.Fprintln(out, "  not registered")
			continue
		}
		fmt.Fprint(out, p.Plan)
	}
}
