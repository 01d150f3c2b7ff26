package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newExecCmd creates the exec subcommand
func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <sql> [args...]",
		Short: "Execute an update or DDL statement",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			_, m, err := connect(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			n, err := m.Exec(ctx, args[0], toArgs(args[1:])...)
			if err != nil {
				return err
			}
			fmt.Printf("%d row(s) affected\n", n)
			return nil
		},
	}
}

// newQueryCmd creates the query subcommand
func newQueryCmd() *cobra.Command {
	var noHeader bool

	cmd := &cobra.Command{
		Use:   "query <sql> [args...]",
		Short: "Run a query and print the rows as a table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			_, m, err := connect(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			res, err := m.QueryResults(ctx, args[0], toArgs(args[1:])...)
			if err != nil {
				return err
			}
			defer res.Close()

			cols, err := res.Columns()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			if !noHeader {
				fmt.Fprintln(w, strings.Join(cols, "\t"))
			}

			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			count := 0
			for res.Next() {
				if err := res.Scan(ptrs...); err != nil {
					return err
				}
				cells := make([]string, len(values))
				for i, v := range values {
					cells[i] = formatValue(v)
				}
				fmt.Fprintln(w, strings.Join(cells, "\t"))
				count++
			}
			if err := res.Err(); err != nil {
				return err
			}
			w.Flush()
			fmt.Fprintf(os.Stderr, "(%d rows)\n", count)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "omit the column header")
	return cmd
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
