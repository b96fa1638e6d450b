// Command ordclient is a minimal TCP client for ordserver: it places,
// cancels, and updates orders from the command line and prints any
// reports it receives back.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"os"
	"strings"

	"github.com/google/uuid"

	"larkbook/internal/common"
	"larkbook/internal/ordwire"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the ordserver")
	action := flag.String("action", "place", "action: place|cancel|update|log")
	sideStr := flag.String("side", "buy", "order side: buy|sell")
	typeStr := flag.String("type", "limit", "order type: limit|market")
	price := flag.Float64("price", 100.0, "limit price")
	size := flag.Float64("size", 1.0, "order size")
	traderID := flag.Uint64("trader", 1, "trader id")
	orderID := flag.Uint64("order-id", 0, "order id to cancel/update")
	newSize := flag.Float64("new-size", 0, "new size for update")
	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	go readReports(conn)

	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}
	var orderType uint8
	if strings.ToLower(*typeStr) == "market" {
		orderType = 1
	}

	switch strings.ToLower(*action) {
	case "place":
		msg := ordwire.NewOrderMessage{
			OrderType: orderType,
			Side:      side,
			Price:     *price,
			Size:      *size,
			TraderID:  *traderID,
		}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Fatalf("send new order: %v", err)
		}
		// The wire protocol doesn't echo a client-chosen id back (the
		// server assigns the order id), so a local correlation ref is
		// what ties this request to its eventual fill/report in the
		// client's own log.
		ref := uuid.New().String()
		fmt.Printf("-> sent %s %s %.8f @ %.8f (client-ref=%s)\n", strings.ToUpper(*sideStr), strings.ToUpper(*typeStr), *size, *price, ref)
	case "cancel":
		msg := ordwire.CancelOrderMessage{OrderID: *orderID}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Fatalf("send cancel: %v", err)
		}
		fmt.Printf("-> sent cancel for order %d\n", *orderID)
	case "update":
		msg := ordwire.UpdateOrderMessage{OrderID: *orderID, NewSize: *newSize}
		if _, err := conn.Write(msg.Serialize()); err != nil {
			log.Fatalf("send update: %v", err)
		}
		fmt.Printf("-> sent update for order %d -> size %.8f\n", *orderID, *newSize)
	case "log":
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(ordwire.LogBook))
		if _, err := conn.Write(buf); err != nil {
			log.Fatalf("send log request: %v", err)
		}
		fmt.Println("-> sent log request")
	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for reports... (ctrl-c to exit)")
	select {}
}

const reportFixedLen = 1 + 1 + 8 + 8 + 8 + 8 + 4

func readReports(conn net.Conn) {
	for {
		header := make([]byte, reportFixedLen)
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}

		typ := ordwire.ReportType(header[0])
		side := common.Side(header[1])
		price := int64(binary.BigEndian.Uint64(header[2:10]))
		size := math.Float64frombits(binary.BigEndian.Uint64(header[10:18]))
		orderID := binary.BigEndian.Uint64(header[18:26])
		counterparty := binary.BigEndian.Uint64(header[26:34])
		errLen := binary.BigEndian.Uint32(header[34:38])

		var errStr string
		if errLen > 0 {
			buf := make([]byte, errLen)
			if _, err := io.ReadFull(conn, buf); err != nil {
				log.Printf("error reading report body: %v", err)
				return
			}
			errStr = string(buf)
		}

		if typ == ordwire.ErrorReport {
			fmt.Printf("\n[ERROR] %s\n", errStr)
			continue
		}
		fmt.Printf("\n[FILL] side=%s price=%d size=%.8f orderID=%d counterparty=%d\n",
			side, price, size, orderID, counterparty)
	}
}
