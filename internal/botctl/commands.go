package botctl

import (
	"encoding/json"
	"errors"
	"flag"
	"net/url"
	"os"
	"strconv"
	"strings"
)

func tickCmd(ctx Context, args []string) error {
	if len(args) > 0 && args[0] != "run" {
		return errors.New("usage: botctl tick [run]")
	}
	return ctx.call("POST", "/api/tick", nil)
}

func strategiesCmd(ctx Context, args []string) error {
	if len(args) == 0 {
		return errors.New("strategies subcommand required: list|get|create|status|delete")
	}
	switch args[0] {
	case "list", "ls":
		fs := flag.NewFlagSet("botctl strategies list", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		owner := fs.String("owner", "", "filter by owner")
		status := fs.String("status", "", "live|paused|draft")
		botType := fs.String("bot-type", "", "grid|dca|rebalance|arbitrage")
		limit := fs.Int("limit", 100, "page size")
		offset := fs.Int("offset", 0, "page offset")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		q := url.Values{}
		setQuery(q, "owner", *owner)
		setQuery(q, "status", *status)
		setQuery(q, "bot_type", *botType)
		q.Set("limit", strconv.Itoa(*limit))
		q.Set("offset", strconv.Itoa(*offset))
		return ctx.call("GET", "/api/strategies?"+q.Encode(), nil)

	case "get":
		id, err := idArg(args, "usage: botctl strategies get <id>")
		if err != nil {
			return err
		}
		return ctx.call("GET", "/api/strategies/"+id, nil)

	case "create":
		fs := flag.NewFlagSet("botctl strategies create", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		name := fs.String("name", "", "display name")
		owner := fs.String("owner", "", "owner id")
		botType := fs.String("bot-type", "", "grid|dca|rebalance|arbitrage")
		symbol := fs.String("symbol", "", "asset symbol, e.g. ETH")
		base := fs.String("base-asset", "", "quote asset (default USDC)")
		params := fs.String("params", "{}", "json params")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if strings.TrimSpace(*owner) == "" || strings.TrimSpace(*botType) == "" || strings.TrimSpace(*symbol) == "" {
			return errors.New("--owner, --bot-type and --symbol required")
		}
		if !json.Valid([]byte(*params)) {
			return errors.New("--params must be valid json")
		}
		body := map[string]any{
			"owner":    strings.TrimSpace(*owner),
			"bot_type": strings.TrimSpace(*botType),
			"symbol":   strings.TrimSpace(*symbol),
			"params":   json.RawMessage(*params),
		}
		if v := strings.TrimSpace(*name); v != "" {
			body["name"] = v
		}
		if v := strings.TrimSpace(*base); v != "" {
			body["base_asset"] = v
		}
		return ctx.call("POST", "/api/strategies", body)

	case "status":
		if len(args) < 3 {
			return errors.New("usage: botctl strategies status <id> <live|paused|draft>")
		}
		id := strings.TrimSpace(args[1])
		return ctx.call("POST", "/api/strategies/"+url.PathEscape(id)+"/status", map[string]string{
			"status": strings.TrimSpace(args[2]),
		})

	case "delete", "rm":
		id, err := idArg(args, "usage: botctl strategies delete <id>")
		if err != nil {
			return err
		}
		return ctx.call("DELETE", "/api/strategies/"+id, nil)

	default:
		return errors.New("unknown strategies subcommand: " + args[0])
	}
}

func portfolioCmd(ctx Context, args []string) error {
	if len(args) == 0 {
		return errors.New("portfolio subcommand required: get|set|list")
	}
	switch args[0] {
	case "get":
		owner, err := idArg(args, "usage: botctl portfolio get <owner>")
		if err != nil {
			return err
		}
		return ctx.call("GET", "/api/portfolio/"+owner, nil)

	case "set":
		fs := flag.NewFlagSet("botctl portfolio set", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		owner := fs.String("owner", "", "owner id")
		holdings := fs.String("holdings", "", `json object, e.g. {"USDC":1000,"ETH":0.5}`)
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if strings.TrimSpace(*owner) == "" {
			return errors.New("--owner required")
		}
		var parsed map[string]json.Number
		dec := json.NewDecoder(strings.NewReader(*holdings))
		dec.UseNumber()
		if err := dec.Decode(&parsed); err != nil {
			return errors.New("--holdings must be a json object of asset to amount")
		}
		return ctx.call("POST", "/api/portfolio/"+url.PathEscape(strings.TrimSpace(*owner)), map[string]any{
			"holdings": parsed,
		})

	case "list", "ls":
		return ctx.call("GET", "/api/portfolio", nil)

	default:
		return errors.New("unknown portfolio subcommand: " + args[0])
	}
}

func tradesCmd(ctx Context, args []string) error {
	if len(args) == 0 {
		return errors.New("trades subcommand required: list|get")
	}
	switch args[0] {
	case "list", "ls":
		fs := flag.NewFlagSet("botctl trades list", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		owner := fs.String("owner", "", "filter by owner")
		strategyID := fs.String("strategy-id", "", "filter by strategy id")
		symbol := fs.String("symbol", "", "filter by symbol")
		side := fs.String("side", "", "buy|sell")
		limit := fs.Int("limit", 100, "page size")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		q := url.Values{}
		setQuery(q, "owner", *owner)
		setQuery(q, "strategy_id", *strategyID)
		setQuery(q, "symbol", *symbol)
		setQuery(q, "side", *side)
		q.Set("limit", strconv.Itoa(*limit))
		return ctx.call("GET", "/api/trades?"+q.Encode(), nil)

	case "get":
		id, err := idArg(args, "usage: botctl trades get <id>")
		if err != nil {
			return err
		}
		return ctx.call("GET", "/api/trades/"+id, nil)

	default:
		return errors.New("unknown trades subcommand: " + args[0])
	}
}

func priceCmd(ctx Context, args []string) error {
	if len(args) == 0 {
		return errors.New("price subcommand required: current|history")
	}
	switch args[0] {
	case "current":
		symbol, err := idArg(args, "usage: botctl price current <symbol>")
		if err != nil {
			return err
		}
		return ctx.call("GET", "/api/prices/"+symbol, nil)

	case "history":
		fs := flag.NewFlagSet("botctl price history", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		symbol := fs.String("symbol", "", "asset symbol")
		hours := fs.Int("hours", 24, "lookback in hours")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if strings.TrimSpace(*symbol) == "" {
			return errors.New("--symbol required")
		}
		return ctx.call("GET", "/api/prices/"+url.PathEscape(strings.TrimSpace(*symbol))+"/history?hours="+strconv.Itoa(*hours), nil)

	default:
		return errors.New("unknown price subcommand: " + args[0])
	}
}

func idArg(args []string, usage string) (string, error) {
	if len(args) < 2 || strings.TrimSpace(args[1]) == "" {
		return "", errors.New(usage)
	}
	return url.PathEscape(strings.TrimSpace(args[1])), nil
}

func setQuery(q url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		q.Set(key, v)
	}
}
