package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/uhyunpark/minimatch/pkg/api"
	"github.com/uhyunpark/minimatch/pkg/app/core/ledger"
	"github.com/uhyunpark/minimatch/pkg/app/exchange"
	"github.com/uhyunpark/minimatch/pkg/client"
)

const usage = `usage: matchctl [flags] <command> [args]

commands:
  register <name>          register a user, prints its id
  hello <id>               greet a user
  order <id> <q:p:side>    place an order, e.g. order 0 10:60:buy
  status <id>              print balances
  reset                    forget all users and orders
  raw <json>               send a raw request line
  book                     print the order book (HTTP gateway)
  trades [n]               print the latest trades (HTTP gateway)

flags:
`

func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "TCP server address")
	apiURL := flag.String("api", "http://127.0.0.1:8080", "HTTP gateway base URL")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "book":
		err = printBook(*apiURL, *timeout)
	case "trades":
		n := 20
		if len(args) > 1 {
			if n, err = strconv.Atoi(args[1]); err != nil {
				fail(fmt.Errorf("trades: bad count %q", args[1]))
			}
		}
		err = printTrades(*apiURL, n, *timeout)
	default:
		err = runLine(*addr, *timeout, args)
	}
	if err != nil {
		fail(err)
	}
}

func runLine(addr string, timeout time.Duration, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c, err := client.Dial(ctx, addr, timeout)
	if err != nil {
		return err
	}
	defer c.Close()

	var reply string
	switch args[0] {
	case "register":
		if err := need(args, 2); err != nil {
			return err
		}
		reply, err = c.Register(args[1])
	case "hello":
		if err := need(args, 2); err != nil {
			return err
		}
		reply, err = withID(args[1], c.Hello)
	case "order":
		if err := need(args, 3); err != nil {
			return err
		}
		reply, err = withID(args[1], func(id ledger.UserID) (string, error) { return c.Trade(id, args[2]) })
	case "status":
		if err := need(args, 2); err != nil {
			return err
		}
		reply, err = withID(args[1], c.Status)
	case "reset":
		reply, err = c.Reset()
	case "raw":
		if err := need(args, 2); err != nil {
			return err
		}
		reply, err = c.DoRaw([]byte(args[1]))
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

func printBook(base string, timeout time.Duration) error {
	var book api.BookSnapshot
	if err := getJSON(base+"/api/v1/book", timeout, &book); err != nil {
		return err
	}
	printLevels("bids", book.Bids)
	printLevels("asks", book.Asks)
	return nil
}

func printLevels(title string, levels []api.PriceLevel) {
	writer := tablewriter.NewWriter(os.Stdout)
	writer.SetHeader([]string{"price", "qty", "orders"})
	for _, l := range levels {
		writer.Append([]string{l.Price.String(), l.Size.String(), strconv.Itoa(l.Orders)})
	}
	writer.SetCaption(true, title)
	writer.Render()
}

func printTrades(base string, n int, timeout time.Duration) error {
	var trades []exchange.Trade
	if err := getJSON(fmt.Sprintf("%s/api/v1/trades?limit=%d", base, n), timeout, &trades); err != nil {
		return err
	}
	writer := tablewriter.NewWriter(os.Stdout)
	writer.SetHeader([]string{"#", "time", "buyer", "seller", "qty", "price", "total"})
	for _, t := range trades {
		writer.Append([]string{
			strconv.FormatUint(t.Number, 10),
			t.Time.Format(time.RFC3339),
			strconv.Itoa(int(t.Buyer)),
			strconv.Itoa(int(t.Seller)),
			t.Qty.String(),
			t.Price.String(),
			t.Notional().String(),
		})
	}
	writer.SetCaption(true, "trades")
	writer.Render()
	return nil
}

func getJSON(url string, timeout time.Duration, out any) error {
	hc := &http.Client{Timeout: timeout}
	resp, err := hc.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("GET %s: %s %s", url, resp.Status, e.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func withID(raw string, fn func(ledger.UserID) (string, error)) (string, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return "", fmt.Errorf("bad user id %q", raw)
	}
	return fn(ledger.UserID(n))
}

func need(args []string, n int) error {
	if len(args) < n {
		return fmt.Errorf("%s: missing arguments", args[0])
	}
	return nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "matchctl:", err)
	os.Exit(1)
}
