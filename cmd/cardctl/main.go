package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"

	grpc_adapter "github.com/JoeShih716/go-card-ledger/internal/app/tracker/adapter/in/grpc"
	grpcpool "github.com/JoeShih716/go-card-ledger/pkg/grpc"
)

const usage = `usage: cardctl [-addr host:port] <command> [flags]

commands:
  cards                                  list cards and total outstanding
  add-card -name -bank -last4 -limit -bill-day [-theme]
  delete-card <card-id>
  add-tx -card -amount -category [-type] [-status] [-spent-by] [-desc] [-date]
  settle <transaction-id>
  txs [-card] [-q] [-tab unpaid|paid|all]
  overview <card-id> [-today YYYY-MM-DD]
  summary [-recent N]
`

func main() {
	addr := flag.String("addr", "localhost:50051", "tracker gRPC address")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	pool := grpcpool.NewPool(grpcpool.WithInterceptor(timeoutInterceptor(*timeout)))
	defer pool.Close()
	conn, err := pool.Get(*addr)
	if err != nil {
		log.Fatalf("connect %s: %v", *addr, err)
	}
	client := grpc_adapter.NewClient(conn)

	method, req, err := parseCommand(flag.Arg(0), flag.Args()[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	resp, err := client.Call(context.Background(), method, req)
	if err != nil {
		log.Fatalf("%s: %v", method, err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		log.Fatal(err)
	}
}

// parseCommand 將子命令與旗標轉為 gRPC 方法與請求內容
func parseCommand(cmd string, args []string) (string, map[string]any, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	req := map[string]any{}

	switch cmd {
	case "cards":
		return grpc_adapter.MethodListCards, req, fs.Parse(args)
	case "add-card":
		name := fs.String("name", "", "card alias")
		bank := fs.String("bank", "", "issuing bank")
		last4 := fs.String("last4", "", "last four digits")
		limit := fs.String("limit", "", "credit limit, e.g. 50000")
		billDay := fs.Int("bill-day", 20, "bill day of month (1-31)")
		theme := fs.String("theme", "", "theme-1..theme-4")
		if err := fs.Parse(args); err != nil {
			return "", nil, err
		}
		req["name"], req["bank"], req["last4"] = *name, *bank, *last4
		req["limit"], req["billDay"], req["theme"] = *limit, *billDay, *theme
		return grpc_adapter.MethodAddCard, req, nil
	case "delete-card", "settle", "overview":
		today := fs.String("today", "", "evaluate bill cycle on this date (overview only)")
		if err := fs.Parse(args); err != nil {
			return "", nil, err
		}
		if fs.NArg() != 1 {
			return "", nil, fmt.Errorf("%s needs exactly one id", cmd)
		}
		req["id"] = fs.Arg(0)
		switch cmd {
		case "delete-card":
			return grpc_adapter.MethodDeleteCard, req, nil
		case "settle":
			return grpc_adapter.MethodSettleTransaction, req, nil
		}
		if *today != "" {
			req["today"] = *today
		}
		return grpc_adapter.MethodGetCardOverview, req, nil
	case "add-tx":
		card := fs.String("card", "", "card id")
		amount := fs.String("amount", "", "amount, e.g. 1200.50")
		category := fs.String("category", "Other", "Shopping|Food|Travel|EMI|Online|Utilities|Other")
		typ := fs.String("type", "Expense", "Expense|Payment")
		status := fs.String("status", "Unpaid", "Unpaid|Paid")
		spentBy := fs.String("spent-by", "", "who spent it")
		desc := fs.String("desc", "", "description")
		date := fs.String("date", "", "RFC3339 timestamp, defaults to now")
		if err := fs.Parse(args); err != nil {
			return "", nil, err
		}
		req["cardId"], req["amount"], req["category"] = *card, *amount, *category
		req["type"], req["status"] = *typ, *status
		req["spentBy"], req["description"], req["date"] = *spentBy, *desc, *date
		return grpc_adapter.MethodAddTransaction, req, nil
	case "txs":
		card := fs.String("card", "", "card id (empty lists every transaction)")
		q := fs.String("q", "", "search text")
		tab := fs.String("tab", "", "unpaid|paid|all")
		if err := fs.Parse(args); err != nil {
			return "", nil, err
		}
		req["cardId"], req["query"], req["tab"] = *card, *q, *tab
		return grpc_adapter.MethodListTransactions, req, nil
	case "summary":
		recent := fs.Int("recent", 5, "number of recent transactions")
		if err := fs.Parse(args); err != nil {
			return "", nil, err
		}
		req["recent"] = *recent
		return grpc_adapter.MethodGetSummary, req, nil
	default:
		return "", nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func timeoutInterceptor(d time.Duration) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
