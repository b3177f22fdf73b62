//go:build ignore
// +build ignore

// Synthetic transaction generator for exercising the RFM pipeline at scale.
//
// Usage:
//   go run scripts/gen_transactions.go \
//     --rows=500000 \
//     --customers=4000 \
//     --dirty=0.25 \
//     --out=transactions.csv
//
// A --dirty share of rows is corrupted the way real exports are: missing
// customer ids, exact duplicates, zero or negative quantities, zero prices
// and unparseable dates.

package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"
)

var countries = []string{"United Kingdom", "United Kingdom", "United Kingdom", "Germany", "France", "EIRE", "Spain", "Netherlands"}

type product struct {
	code  string
	desc  string
	price float64
}

func main() {
	rows := flag.Int("rows", 100000, "rows to generate")
	customers := flag.Int("customers", 4000, "distinct customers")
	products := flag.Int("products", 3500, "distinct stock codes")
	dirty := flag.Float64("dirty", 0.25, "share of rows to corrupt")
	seed := flag.Int64("seed", 1, "random seed")
	out := flag.String("out", "transactions.csv", "output file")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	catalogue := make([]product, *products)
	for i := range catalogue {
		catalogue[i] = product{
			code:  fmt.Sprintf("%05d", 10000+i),
			desc:  fmt.Sprintf("ITEM %d", i),
			price: float64(rng.Intn(2000)+15) / 100,
		}
	}
	home := make([]string, *customers)
	for i := range home {
		home[i] = countries[rng.Intn(len(countries))]
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{"Invoice", "StockCode", "Description", "Quantity", "InvoiceDate", "Price", "Customer ID", "Country"})

	start := time.Date(2009, 12, 1, 8, 0, 0, 0, time.UTC)
	span := int64(2 * 365 * 24 * time.Hour / time.Minute)

	invoice := 489434
	var prev []string
	written := 0
	for written < *rows {
		cust := rng.Intn(*customers)
		when := start.Add(time.Duration(rng.Int63n(span)) * time.Minute)
		lines := rng.Intn(8) + 1
		invoice++
		for l := 0; l < lines && written < *rows; l++ {
			p := catalogue[rng.Intn(len(catalogue))]
			row := []string{
				strconv.Itoa(invoice),
				p.code,
				p.desc,
				strconv.Itoa(rng.Intn(24) + 1),
				when.Format("2006-01-02 15:04:05"),
				strconv.FormatFloat(p.price, 'f', 2, 64),
				strconv.Itoa(12346 + cust),
				home[cust],
			}
			if prev != nil && rng.Float64() < *dirty {
				row = corrupt(rng, row, prev)
			}
			w.Write(row)
			prev = row
			written++
		}
	}
	if err := w.Error(); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %d rows (%d invoices) to %s", written, invoice-489434, *out)
}

func corrupt(rng *rand.Rand, row, prev []string) []string {
	switch rng.Intn(5) {
	case 0:
		row[6] = ""
	case 1:
		return append([]string(nil), prev...)
	case 2:
		row[3] = strconv.Itoa(-rng.Intn(12))
	case 3:
		row[5] = "0.00"
	case 4:
		row[4] = "not a date"
	}
	return row
}
