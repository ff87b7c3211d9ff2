package main

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/JulianR23/Vertex-Store/internal/domain/product"
)

func printCatalog(w io.Writer, products []*product.Product) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Price", "Stock")
	for _, p := range products {
		if err := table.Append(p.ID, p.Name, strconv.FormatInt(p.Price, 10), strconv.Itoa(p.Stock)); err != nil {
			return err
		}
	}
	return table.Render()
}
