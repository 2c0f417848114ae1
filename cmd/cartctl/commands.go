package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/internal/cart"
)

// opener yields the cart registry a command operates on and a func that
// releases its connections.
type opener func(ctx context.Context) (*cart.Registry, func() error, error)

var csvHeader = []string{"product_id", "name", "price", "stock_quantity", "quantity", "selling_price"}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Inspect and repair persisted shopper carts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newShowCmd(open),
		newClearCmd(open),
		newExportCmd(open),
		newImportCmd(open),
	)
	return root
}

func newShowCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print the lines and totals of a cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, open, args[0], func(store *cart.Store) error {
				return printCart(cmd.OutOrStdout(), store.Snapshot())
			})
		},
	}
}

func newClearCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <session-id>",
		Short: "Empty a cart and persist the empty snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, open, args[0], func(store *cart.Store) error {
				store.Clear(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "cleared cart %s\n", store.SessionID())
				return nil
			})
		},
	}
}

func newExportCmd(open opener) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Write cart lines as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, open, args[0], func(store *cart.Store) error {
				out := cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return err
					}
					defer f.Close()
					out = f
				}
				return writeCSV(out, store.Snapshot().Items)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "destination file, - for stdout")
	return cmd
}

func newImportCmd(open opener) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "import <session-id>",
		Short: "Add CSV lines to a cart, enforcing stock limits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			rows, err := readCSV(in)
			if err != nil {
				return err
			}
			return withStore(cmd, open, args[0], func(store *cart.Store) error {
				rejected := 0
				for _, row := range rows {
					outcome := store.AddItem(cmd.Context(), row.Product, row.Quantity, row.SellingPrice)
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", row.Product.ID, outcome.Kind)
					if outcome.Rejected() {
						rejected++
					}
				}
				if rejected > 0 {
					return fmt.Errorf("%d of %d lines rejected", rejected, len(rows))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&input, "file", "f", "-", "source file, - for stdin")
	return cmd
}

func withStore(cmd *cobra.Command, open opener, sessionID string, fn func(*cart.Store) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
		cmd.SetContext(ctx)
	}
	registry, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer func() {
			err = multierr.Append(err, closeFn())
		}()
	}
	store, err := registry.Get(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return err
	}
	return fn(store)
}

func printCart(w io.Writer, agg cart.Aggregate) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tQTY\tPRICE\tSELLING\tSUBTOTAL")
	for _, line := range agg.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			line.Product.ID,
			line.Product.Name,
			line.Quantity,
			line.Product.Price.StringFixed(2),
			formatSellingPrice(line.SellingPrice),
			line.Subtotal.StringFixed(2),
		)
	}
	fmt.Fprintf(tw, "TOTAL\t\t%d\t\t\t%s\n", agg.TotalItems, agg.TotalPrice.StringFixed(2))
	return tw.Flush()
}

func formatSellingPrice(price *decimal.Decimal) string {
	if price == nil {
		return "-"
	}
	return price.StringFixed(2)
}

func writeCSV(w io.Writer, lines []cart.Line) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, line := range lines {
		selling := ""
		if line.SellingPrice != nil {
			selling = line.SellingPrice.String()
		}
		record := []string{
			line.Product.ID,
			line.Product.Name,
			line.Product.Price.String(),
			strconv.Itoa(line.Product.StockQuantity),
			strconv.Itoa(line.Quantity),
			selling,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type importRow struct {
	Product      cart.ProductRef
	Quantity     int
	SellingPrice *decimal.Decimal
}

func readCSV(r io.Reader) ([]importRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, col := range csvHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return nil, fmt.Errorf("unexpected csv column %d %q, want %q", i+1, header[i], col)
		}
	}

	var rows []importRow
	for lineNo := 2; ; lineNo++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", lineNo, err)
		}
		row, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", lineNo, err)
		}
		rows = append(rows, row)
	}
}

func parseRow(record []string) (importRow, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return importRow{}, fmt.Errorf("price: %w", err)
	}
	stock, err := strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil {
		return importRow{}, fmt.Errorf("stock_quantity: %w", err)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(record[4]))
	if err != nil {
		return importRow{}, fmt.Errorf("quantity: %w", err)
	}
	row := importRow{
		Product: cart.ProductRef{
			ID:            strings.TrimSpace(record[0]),
			Name:          strings.TrimSpace(record[1]),
			Price:         price,
			StockQuantity: stock,
		},
		Quantity: qty,
	}
	if raw := strings.TrimSpace(record[5]); raw != "" {
		selling, err := decimal.NewFromString(raw)
		if err != nil {
			return importRow{}, fmt.Errorf("selling_price: %w", err)
		}
		row.SellingPrice = &selling
	}
	return row, nil
}
