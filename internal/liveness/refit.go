package liveness

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// announceLine is the minimal shape read out of a
// nomadnetwork.node.log* JSON-lines file; any other fields are ignored
// and unparseable lines are skipped rather than aborting the whole file.
type announceLine struct {
	DST      string `json:"dst"`
	Datetime string `json:"datetime"`
}

// RefitAll scans every nomadnetwork.node.log* file under
// <logDir>/announces/ and returns, per destination address, the refit
// Gamma posterior over the last lookbackDays of announce history as of
// now.
func RefitAll(logDir string, now time.Time, lookbackDays int) (map[string]Posterior, error) {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	lookback := time.Duration(lookbackDays) * 24 * time.Hour
	cutoff := now.Add(-lookback)

	paths, err := filepath.Glob(filepath.Join(logDir, "announces", "nomadnetwork.node.log*"))
	if err != nil {
		return nil, err
	}

	timestamps := make(map[string][]time.Time)
	for _, path := range paths {
		readAnnounceFile(path, cutoff, timestamps)
	}

	out := make(map[string]Posterior, len(timestamps))
	for dst, ts := range timestamps {
		if len(ts) == 0 {
			continue
		}
		earliest := ts[0]
		for _, t := range ts[1:] {
			if t.Before(earliest) {
				earliest = t
			}
		}
		windowSeconds := min(lookback.Seconds(), now.Sub(earliest).Seconds())
		if windowSeconds < 0 {
			windowSeconds = 0
		}
		out[dst] = Refit(len(ts), windowSeconds)
	}
	return out, nil
}

// readAnnounceFile reads one rotated log file, folding every line with a
// timestamp at or after cutoff into timestamps. Unparseable lines and
// lines before the cutoff are silently skipped.
func readAnnounceFile(path string, cutoff time.Time, timestamps map[string][]time.Time) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var line announceLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if line.DST == "" || line.Datetime == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, line.Datetime)
		if err != nil {
			continue
		}
		if t.Before(cutoff) {
			continue
		}
		timestamps[line.DST] = append(timestamps[line.DST], t)
	}
}
