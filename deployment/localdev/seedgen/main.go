// seedgen writes a deterministic sample equipment CSV for local testing
// of the upload endpoint. The last row of each type carries an extreme
// flowrate so outlier detection has something to find.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
)

var equipmentTypes = []string{"Pump", "Compressor", "Valve", "Heat Exchanger"}

func main() {
	var (
		out  string
		rows int
		seed int64
	)
	flag.StringVar(&out, "out", "equipment.csv", "Output CSV path")
	flag.IntVar(&rows, "rows", 40, "Number of data rows per equipment type")
	flag.Int64Var(&seed, "seed", 1, "Random seed")
	flag.Parse()

	file, err := os.Create(out)
	if err != nil {
		log.Fatalf("create %s: %v", out, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature"}); err != nil {
		log.Fatalf("write header: %v", err)
	}

	rng := rand.New(rand.NewSource(seed))
	for t, equipmentType := range equipmentTypes {
		base := 50.0 + float64(t)*25
		for i := 0; i < rows; i++ {
			flow := base + rng.NormFloat64()*5
			if i == rows-1 {
				flow = base * 4
			}
			record := []string{
				fmt.Sprintf("%s-%03d", equipmentType, i+1),
				equipmentType,
				strconv.FormatFloat(flow, 'f', 2, 64),
				strconv.FormatFloat(4+rng.NormFloat64()*0.5, 'f', 2, 64),
				strconv.FormatFloat(100+rng.NormFloat64()*10, 'f', 2, 64),
			}
			if err := writer.Write(record); err != nil {
				log.Fatalf("write row: %v", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Fatalf("flush: %v", err)
	}
	log.Printf("wrote %d rows to %s", rows*len(equipmentTypes), out)
}
