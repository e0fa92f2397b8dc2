package testutil

import (
	"bytes"
	"encoding/csv"
)

// RestaurantHeaders is the header row of a raw restaurant listing export.
var RestaurantHeaders = []string{
	"name", "online_order", "book_table", "rate", "votes",
	"approx_cost(for two people)", "listed_in(type)",
}

// Restaurant is one raw listing row.
type Restaurant struct {
	Name        string
	OnlineOrder string
	BookTable   string
	Rate        string
	Votes       string
	Cost        string
	ListedType  string
}

func (r Restaurant) cells() []string {
	return []string{r.Name, r.OnlineOrder, r.BookTable, r.Rate, r.Votes, r.Cost, r.ListedType}
}

// SampleRestaurants is a small export with one row for each way a row can be
// dropped. Four rows survive normalization.
var SampleRestaurants = []Restaurant{
	{"Jalsa", "Yes", "Yes", "4.1/5", "775", "800", "Buffet"},
	{"Spice Elephant", "Yes", "No", "4.1/5", "787", "800", "Buffet"},
	{"San Churro Cafe", "Yes", "No", "3.8/5", "918", "800", "Cafes"},
	{"Addhuri Udupi Bhojana", "No", "No", "3.7/5", "88", "300", "Delivery"},
	{"Grand Village", "No", "No", "NEW", "0", "600", "Buffet"},
	{"Timepass Dinner", "Yes", "No", "-", "0", "600", "Delivery"},
	{"Rosewood International", "No", "No", "nan", "0", "1,200", "Dine-out"},
	{"Onesta", "Yes", "No", "4.6/5", "2556", "n/a", "Cafes"},
}

// SampleCleanRows is how many SampleRestaurants rows survive normalization.
const SampleCleanRows = 4

// RestaurantCSV encodes rows as a UTF-8 CSV export with RestaurantHeaders.
func RestaurantCSV(rows ...Restaurant) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(RestaurantHeaders)
	for _, r := range rows {
		_ = w.Write(r.cells())
	}
	w.Flush()
	return buf.Bytes()
}

// SampleCSV returns SampleRestaurants as CSV bytes.
func SampleCSV() []byte {
	return RestaurantCSV(SampleRestaurants...)
}
