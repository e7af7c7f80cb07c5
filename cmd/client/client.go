package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"garm/internal/common"
	garmNet "garm/internal/net"
)

func main() {
	// CLI parameter parsing
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	owner := flag.String("owner", "", "Owner username (compulsory except for queries)")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'book', 'log', 'sim']")

	// Order parameters
	ticker := flag.String("ticker", "AAPL", "Ticker symbol (max 4 chars)")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit' or 'market'")
	price := flag.String("price", "100.0", "Limit price")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")

	// Cancel / query parameters
	orderID := flag.Uint64("id", 0, "ID of the order to cancel")
	fromSeq := flag.Uint64("from", 0, "First trade sequence number to fetch")

	// Simulator parameters
	simOrders := flag.Int("sim-orders", 50, "Number of orders the simulator submits")
	simTraders := flag.String("sim-traders", "anshu,ayush,harshit,dipanshu", "Comma-separated simulated traders")
	simInterval := flag.Duration("sim-interval", 50*time.Millisecond, "Delay between simulated orders")

	flag.Parse()

	needsOwner := *action == "place"
	if needsOwner && *owner == "" {
		fmt.Println("Error: -owner is compulsory for placing orders.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s\n", *serverAddr)

	// Start listening for reports (async).
	go readReports(conn)

	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}
	orderType := common.LimitOrder
	if strings.ToLower(*typeStr) == "market" {
		orderType = common.MarketOrder
	}

	switch strings.ToLower(*action) {
	case "place":
		for _, qty := range parseQuantities(*qtyStr) {
			err := sendPlaceOrder(conn, *owner, orderType, *ticker, *price, qty, side)
			if err != nil {
				log.Printf("Failed to place order (Qty: %d): %v", qty, err)
			} else {
				fmt.Printf("-> Sent %s Order: %s %d @ %s\n", strings.ToUpper(*sideStr), *ticker, qty, *price)
			}
			// Let the server pick each message off distinctly.
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *orderID == 0 {
			log.Fatal("Error: -id is required for cancellation")
		}
		msg := garmNet.CancelOrderMessage{Ticker: *ticker, OrderID: *orderID}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Printf("Failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> Sent Cancel Request for order %d\n", *orderID)
		}

	case "book":
		msg := garmNet.BookQueryMessage{Ticker: *ticker}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Printf("Failed to send book query: %v", err)
		}

	case "log":
		msg := garmNet.TradeLogQueryMessage{From: *fromSeq}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Printf("Failed to send trade log query: %v", err)
		}

	case "sim":
		simulate(conn, *ticker, strings.Split(*simTraders, ","), *simOrders, *simInterval)

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	// Keep the client alive to receive execution reports.
	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

// simulate plays a crude random signal source against the venue: random
// trader, random side, small random quantity, price on a random walk.
func simulate(conn net.Conn, ticker string, traders []string, orders int, interval time.Duration) {
	price := 100 + rand.Intn(51)
	for i := 0; i < orders; i++ {
		price += rand.Intn(5) - 2
		if price < 1 {
			price = 1
		}
		side := common.Buy
		if rand.Intn(2) == 1 {
			side = common.Sell
		}
		trader := traders[rand.Intn(len(traders))]
		qty := uint64(1 + rand.Intn(5))

		err := sendPlaceOrder(conn, trader, common.LimitOrder, ticker, strconv.Itoa(price), qty, side)
		if err != nil {
			log.Printf("Simulator failed to place order: %v", err)
			return
		}
		fmt.Printf("-> [sim] %s %s %d %s @ %d\n", trader, side, qty, ticker, price)
		time.Sleep(interval)
	}
}

// parseQuantities splits a comma-separated string into a slice of uint64
func parseQuantities(input string) []uint64 {
	parts := strings.Split(input, ",")
	var result []uint64
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if val, err := strconv.ParseUint(p, 10, 64); err == nil {
			result = append(result, val)
		} else {
			log.Printf("Warning: Invalid quantity '%s', skipping.", p)
		}
	}
	return result
}

func sendPlaceOrder(conn net.Conn, owner string, orderType common.OrderType, ticker, price string, qty uint64, side common.Side) error {
	msg := garmNet.NewOrderMessage{
		OrderType: orderType,
		Side:      side,
		Ticker:    ticker,
		Quantity:  qty,
		Price:     price,
		Owner:     owner,
	}
	_, err := conn.Write(msg.Serialize())
	return err
}

// readReports continuously reads and prints report frames from the server.
func readReports(conn net.Conn) {
	for {
		typeOf, payload, err := garmNet.ReadReport(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("Connection lost: %v", err)
			}
			os.Exit(0)
		}

		switch typeOf {
		case garmNet.OrderAck:
			id, err := garmNet.ParseAck(payload)
			if err == nil {
				fmt.Printf("\n[ACK] Order accepted with ID %d\n", id)
			}

		case garmNet.CancelAck:
			id, err := garmNet.ParseAck(payload)
			if err == nil {
				fmt.Printf("\n[ACK] Order %d cancelled\n", id)
			}

		case garmNet.ExecutionReport:
			trade, err := garmNet.ParseExecution(payload)
			if err != nil {
				log.Printf("Bad execution report: %v", err)
				continue
			}
			fmt.Printf("\n[EXECUTION] #%d %s | Qty: %d | Price: %s | %s bought from %s\n",
				trade.Seq, trade.Ticker, trade.Quantity, trade.Price.String(), trade.Buyer, trade.Seller)

		case garmNet.ErrorReport:
			fmt.Printf("\n[SERVER ERROR] %s\n", string(payload))

		case garmNet.BookReport:
			snapshot, err := garmNet.ParseBook(payload)
			if err != nil {
				log.Printf("Bad book report: %v", err)
				continue
			}
			fmt.Printf("\n[BOOK] %s\n", snapshot.Ticker)
			fmt.Println("  Asks:")
			for i := len(snapshot.Asks) - 1; i >= 0; i-- {
				level := snapshot.Asks[i]
				var qty uint64
				for _, o := range level.Orders {
					qty += o.Quantity
				}
				fmt.Printf("    %s x %d (%d orders)\n", level.Price.String(), qty, len(level.Orders))
			}
			fmt.Println("  Bids:")
			for _, level := range snapshot.Bids {
				var qty uint64
				for _, o := range level.Orders {
					qty += o.Quantity
				}
				fmt.Printf("    %s x %d (%d orders)\n", level.Price.String(), qty, len(level.Orders))
			}

		case garmNet.TradeLogReport:
			trades, err := garmNet.ParseTradeLog(payload)
			if err != nil {
				log.Printf("Bad trade log report: %v", err)
				continue
			}
			fmt.Printf("\n[TRADE LOG] %d trades\n", len(trades))
			for _, trade := range trades {
				fmt.Printf("  #%d %s | Qty: %d | Price: %s | %s <- %s\n",
					trade.Seq, trade.Ticker, trade.Quantity, trade.Price.String(), trade.Buyer, trade.Seller)
			}
		}
	}
}
