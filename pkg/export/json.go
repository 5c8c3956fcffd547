package export

import (
	"encoding/json"
	"fmt"
	"io"

	"rfm-segments/pkg/models"
)

// WriteJSON écrit le résultat indenté. Un revenue_per_day indéfini vaut null.
func WriteJSON(w io.Writer, res models.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
