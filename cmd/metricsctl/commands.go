package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	xhttp "github.com/romkarus000/analytics-product/pkg/http"
)

// detailPaths maps CLI metric names to API routes.
var detailPaths = map[string]string{
	"gross-sales":     "gross-sales",
	"net-revenue":     "net-revenue",
	"refunds":         "refunds",
	"fees-total":      "fees-total",
	"best-worst-days": "best-worst-days",
	"summary":         "summary",
}

type windowFlags struct {
	project int64
	from    string
	to      string
	filters []string
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64VarP(&w.project, "project", "p", 0, "project id")
	cmd.Flags().StringVar(&w.from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&w.to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringArrayVarP(&w.filters, "filter", "f", nil, "filter as key=value, repeatable")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func (w *windowFlags) query() (url.Values, error) {
	q := url.Values{}
	q.Set("from", w.from)
	q.Set("to", w.to)
	filters, err := encodeFilters(w.filters)
	if err != nil {
		return nil, err
	}
	if filters != "" {
		q.Set("filters", filters)
	}
	return q, nil
}

// encodeFilters turns repeated key=value pairs into the filters JSON document.
func encodeFilters(pairs []string) (string, error) {
	if len(pairs) == 0 {
		return "", nil
	}
	doc := map[string][]string{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return "", fmt.Errorf("filter %q must look like key=value", p)
		}
		doc[k] = append(doc[k], v)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func metricNames() []string {
	names := make([]string, 0, len(detailPaths))
	for k := range detailPaths {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func newGetCmd() *cobra.Command {
	w := &windowFlags{}
	cmd := &cobra.Command{
		Use:       "get <metric>",
		Short:     "Print the details of one metric: " + strings.Join(metricNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: metricNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			route, ok := detailPaths[args[0]]
			if !ok {
				return fmt.Errorf("unknown metric %q, expected one of %s", args[0], strings.Join(metricNames(), ", "))
			}
			q, err := w.query()
			if err != nil {
				return err
			}
			return call(cmd.Context(), cmd.OutOrStdout(), &xhttp.RequestOptions{
				Method:      http.MethodGet,
				Path:        fmt.Sprintf("/api/projects/%d/metrics/%s", w.project, route),
				QueryParams: q,
			})
		},
	}
	w.register(cmd)
	return cmd
}

func newDriversCmd() *cobra.Command {
	var (
		w         = &windowFlags{}
		metric    string
		dimension string
		sortMode  string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "Rank the entities that moved a metric",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := w.query()
			if err != nil {
				return err
			}
			q.Set("metric", metric)
			q.Set("dimension", dimension)
			q.Set("sort", sortMode)
			q.Set("limit", strconv.Itoa(limit))
			return call(cmd.Context(), cmd.OutOrStdout(), &xhttp.RequestOptions{
				Method:      http.MethodGet,
				Path:        fmt.Sprintf("/api/projects/%d/metrics/drivers", w.project),
				QueryParams: q,
			})
		},
	}
	w.register(cmd)
	cmd.Flags().StringVarP(&metric, "metric", "m", "net_revenue", "gross_sales, refunds, net_revenue, fees_total or orders")
	cmd.Flags().StringVarP(&dimension, "dimension", "d", "", "product, group, manager, payment_method, ...")
	cmd.Flags().StringVar(&sortMode, "sort", "delta_desc", "delta_desc, delta_asc or current_desc")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of entities")
	_ = cmd.MarkFlagRequired("dimension")
	return cmd
}

func newInvalidateCmd() *cobra.Command {
	var project int64
	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop the cached snapshots of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd.Context(), cmd.OutOrStdout(), &xhttp.RequestOptions{
				Method: http.MethodPost,
				Path:   fmt.Sprintf("/api/projects/%d/cache/invalidate", project),
			})
		},
	}
	cmd.Flags().Int64VarP(&project, "project", "p", 0, "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

// call sends the request and pretty-prints the response envelope.
func call(ctx context.Context, out io.Writer, opts *xhttp.RequestOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := xhttp.NewClient(serverURL, xhttp.WithTimeout(timeout))

	var body []byte
	err := client.SendAndParse(ctx, opts, &body)
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		_ = printJSON(os.Stderr, se.Body)
		return fmt.Errorf("server answered %d", se.StatusCode)
	}
	if err != nil {
		return err
	}
	return printJSON(out, body)
}

func printJSON(out io.Writer, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, werr := out.Write(body)
		return werr
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(out)
	return err
}
