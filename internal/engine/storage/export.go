package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{
	"selected_at", "session_id", "query", "common_name", "official_name",
	"capital", "region", "population", "lat", "lng", "flag_svg",
}

// WriteCSV writes entries with a header row.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, e := range entries {
		c := e.Country
		lat, lng := "", ""
		if c.HasCoords {
			lat = strconv.FormatFloat(c.Lat(), 'f', 6, 64)
			lng = strconv.FormatFloat(c.Lng(), 'f', 6, 64)
		}
		err := cw.Write([]string{
			e.SelectedAt.UTC().Format(time.RFC3339),
			e.SessionID,
			e.Query,
			c.CommonName,
			c.OfficialName,
			c.Capital,
			c.Region,
			strconv.FormatInt(c.Population, 10),
			lat,
			lng,
			c.FlagSVG,
		})
		if err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
