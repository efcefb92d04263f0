package botctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"bitmax/internal/botctl/client"
	"bitmax/internal/botctl/output"
)

type Context struct {
	APIBase string
	Output  output.Format

	Out    io.Writer
	Client *client.Client
}

func Usage(w io.Writer) {
	fmt.Fprint(w, `botctl <command> <subcommand> [flags]

Global Flags:
  --api-base    Bot server base URL (env: BOT_API_BASE, default http://localhost:8080)
  --output      json|text (default json)

Commands:
  tick         run one evaluation pass now
  strategies   list/get/create/status/delete
  portfolio    get/set/list
  trades       list/get
  price        current/history
`)
}

func Dispatch(ctx Context, args []string) error {
	if len(args) == 0 {
		Usage(os.Stderr)
		return errors.New("missing command")
	}
	switch args[0] {
	case "tick":
		return tickCmd(ctx, args[1:])
	case "strategies", "strategy":
		return strategiesCmd(ctx, args[1:])
	case "portfolio":
		return portfolioCmd(ctx, args[1:])
	case "trades":
		return tradesCmd(ctx, args[1:])
	case "price", "prices":
		return priceCmd(ctx, args[1:])
	case "help", "-h", "--help":
		Usage(ctx.out())
		return nil
	default:
		Usage(os.Stderr)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (ctx Context) out() io.Writer {
	if ctx.Out != nil {
		return ctx.Out
	}
	return os.Stdout
}

func (ctx Context) client() *client.Client {
	if ctx.Client != nil {
		return ctx.Client
	}
	return &client.Client{BaseURL: ctx.APIBase}
}

// call performs one request and writes the decoded data section.
func (ctx Context) call(method, path string, body any) error {
	c := ctx.client()
	req, err := c.NewRequest(context.Background(), method, path, body)
	if err != nil {
		return err
	}
	env, err := c.Do(req)
	if err != nil {
		return err
	}
	var data any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return err
		}
	}
	return output.Write(ctx.out(), ctx.Output, data)
}
