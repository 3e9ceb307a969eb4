package commands

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell-cli/internal/api"
	"github.com/inkwell/inkwell-cli/internal/appctx"
	"github.com/inkwell/inkwell-cli/internal/output"
)

// NewAPICmd creates the api command for raw API access.
func NewAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Make raw API requests",
		Long: `Make authenticated requests against the Inkwell API.

Paths gain the /v1 prefix automatically; full URLs are reduced to their
path. Combine with --jq to filter the response:

  inkwell api get /documents --jq '.[].title'
  inkwell api put /documents/abc123 --data '{"body":"...","base_version":4}'`,
	}

	cmd.AddCommand(newAPIMethodCmd("get", "GET request"))
	cmd.AddCommand(newAPIMethodCmd("post", "POST request"))
	cmd.AddCommand(newAPIMethodCmd("put", "PUT request"))
	cmd.AddCommand(newAPIMethodCmd("delete", "DELETE request"))

	return cmd
}

func newAPIMethodCmd(method, short string) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   method + " <path>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := appctx.FromContext(ctx)
			if err := requireAuth(app); err != nil {
				return err
			}

			path := parsePath(args[0])

			var body any
			if data != "" {
				raw := data
				if raw == "-" {
					b, err := io.ReadAll(os.Stdin)
					if err != nil {
						return err
					}
					raw = string(b)
				}
				var parsed json.RawMessage
				if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
					return output.ErrUsageHint("Invalid JSON in --data", err.Error())
				}
				body = parsed
			}

			var resp *api.Response
			var err error
			switch method {
			case "get":
				resp, err = app.API.Get(ctx, path)
			case "post":
				resp, err = app.API.Post(ctx, path, body)
			case "put":
				resp, err = app.API.Put(ctx, path, body)
			case "delete":
				resp, err = app.API.Delete(ctx, path)
			}
			if err != nil {
				return err
			}

			return app.OK(resp.Data, output.WithSummary(apiSummary(resp.Data)))
		},
	}

	if method != "get" && method != "delete" {
		cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body ('-' for stdin)")
	}

	return cmd
}
