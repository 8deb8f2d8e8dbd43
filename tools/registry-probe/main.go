//go:build protogen

// registry-probe calls the read service's gRPC API from the command line.
// Build with -tags protogen after generating the proto stubs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/md-rashed-zaman/orderflow/libs/grpcx"
	registryv1 "github.com/md-rashed-zaman/orderflow/protos/gen/registry/v1"
	"google.golang.org/protobuf/encoding/protojson"
)

func main() {
	addr := flag.String("addr", "localhost:9093", "read service gRPC address")
	id := flag.String("id", "", "product id to fetch")
	query := flag.String("query", "", "search pattern (use * as wildcard)")
	limit := flag.Int("limit", 20, "search page size")
	timeout := flag.Duration("timeout", 5*time.Second, "call timeout")
	flag.Parse()

	if *id == "" && *query == "" {
		fmt.Fprintln(os.Stderr, "usage: registry-probe -id <uuid> | -query <pattern>")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := grpcx.Dial(ctx, *addr, grpcx.DialOptions{Timeout: *timeout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	client := registryv1.NewRegistryServiceClient(conn)
	marshal := protojson.MarshalOptions{Multiline: true, Indent: "  "}

	if *id != "" {
		view, err := client.GetProduct(ctx, &registryv1.GetProductRequest{ProductId: *id})
		if err != nil {
			fmt.Fprintf(os.Stderr, "get product: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(marshal.Format(view))
		return
	}

	resp, err := client.SearchProducts(ctx, &registryv1.SearchProductsRequest{
		Query: *query,
		Limit: int32(*limit),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "search products: %v\n", err)
		os.Exit(1)
	}
	out := struct {
		Total    int64             `json:"total"`
		Products []json.RawMessage `json:"products"`
	}{Total: resp.GetTotal()}
	for _, p := range resp.GetProducts() {
		out.Products = append(out.Products, json.RawMessage(marshal.Format(p)))
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
