package sheet

// Sample returns the built-in quarterly sales table used for "new" sheets and
// when no data has been loaded.
func Sample() *Table {
	products := []string{"Laptop Pro", "Tablet Air", "Phone Max", "Watch Series", "Earbuds Pro"}
	quarters := [][]float64{
		{15000, 8000, 25000, 5000, 12000},
		{18000, 9500, 28000, 6200, 14500},
		{22000, 11000, 32000, 7500, 16000},
		{25000, 13500, 35000, 9000, 18500},
	}
	totals := []float64{80000, 42000, 120000, 27700, 61000}
	growth := []float64{12.5, 15.2, 8.7, 18.3, 13.1}

	rows := [][]Value{{
		Text("Product"), Text("Q1 Sales"), Text("Q2 Sales"), Text("Q3 Sales"),
		Text("Q4 Sales"), Text("Total"), Text("Growth %"),
	}}
	for i, product := range products {
		rows = append(rows, []Value{
			Text(product),
			Number(quarters[0][i]), Number(quarters[1][i]), Number(quarters[2][i]), Number(quarters[3][i]),
			Number(totals[i]), Number(growth[i]),
		})
	}
	return MustNew(rows)
}
