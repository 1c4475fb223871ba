package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matsen/qembed/internal/embedding"
)

// formatFloat renders one vector component with the shortest representation
// that round-trips at float32 precision.
func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// formatVector renders a vector as a comma-separated list of floats.
func formatVector(vec []float32) string {
	var sb strings.Builder
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(formatFloat(v))
	}
	return sb.String()
}

// writeVector prints the bare comma-separated vector form.
func writeVector(w io.Writer, emb embedding.Embedding) error {
	_, err := fmt.Fprintln(w, formatVector(emb.Vector))
	return err
}

// writeQueryTable prints the two-column single-query table: a header row and
// one row with the query and its embedding as a quoted comma-joined field.
func writeQueryTable(w io.Writer, query string, emb embedding.Embedding) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"query", "embedding"}); err != nil {
		return err
	}
	if err := cw.Write([]string{query, formatVector(emb.Vector)}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// writeBatchCSV writes the batch table: header "query,dim0,...,dim{D-1}" and
// one row per query in input order.
func writeBatchCSV(w io.Writer, queries []string, embs []embedding.Embedding) error {
	if len(queries) != len(embs) {
		return fmt.Errorf("got %d embeddings for %d queries", len(embs), len(queries))
	}

	dims := 0
	if len(embs) > 0 {
		dims = embs[0].Dimensions()
	}

	cw := csv.NewWriter(w)

	header := make([]string, 0, dims+1)
	header = append(header, "query")
	for i := 0; i < dims; i++ {
		header = append(header, fmt.Sprintf("dim%d", i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, dims+1)
	for i, emb := range embs {
		if emb.Dimensions() != dims {
			return fmt.Errorf("embedding %d has %d dimensions, want %d", i, emb.Dimensions(), dims)
		}
		row[0] = queries[i]
		for j, v := range emb.Vector {
			row[j+1] = formatFloat(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
