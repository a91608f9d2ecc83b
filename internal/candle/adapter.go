package candle

import "github.com/amirphl/intraday-backtester/internal/db"

// FromRow converts a storage row. The two structs share their field layout.
func FromRow(r db.Candle) Candle {
	return Candle(r)
}

// FromRows converts storage rows in order.
func FromRows(rows []db.Candle) []Candle {
	out := make([]Candle, len(rows))
	for i, r := range rows {
		out[i] = FromRow(r)
	}
	return out
}

// ToRows converts candles to storage rows in order.
func ToRows(candles []Candle) []db.Candle {
	out := make([]db.Candle, len(candles))
	for i, c := range candles {
		out[i] = db.Candle(c)
	}
	return out
}
