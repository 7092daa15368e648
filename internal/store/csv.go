package store

import (
	"encoding/csv"
	"io"
	"time"
)

// WriteRemindersCSV exports all reminders as CSV with a text,due,created
// header, sorted by due date.
func (s *FileStore) WriteRemindersCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"text", "due", "created"}); err != nil {
		return err
	}
	for _, r := range s.Reminders() {
		if err := cw.Write([]string{r.Text, r.Due, r.Created.Format(time.RFC3339)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
