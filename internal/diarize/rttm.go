package diarize

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

// RTTM field positions
const (
	rttmStart    = 3
	rttmDuration = 4
	rttmSpeaker  = 7
	rttmMinField = 9
)

// ParseRTTM reads speaker turns from an RTTM stream in file order. Lines
// with fewer than nine fields, unparseable or non-finite times, a negative
// onset or a non-positive duration are skipped.
func ParseRTTM(r io.Reader) ([]transcript.Segment, int, error) {
	var segments []transcript.Segment
	skipped := 0

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < rttmMinField {
			skipped++
			continue
		}

		start, err := strconv.ParseFloat(fields[rttmStart], 64)
		if err != nil {
			skipped++
			continue
		}
		dur, err := strconv.ParseFloat(fields[rttmDuration], 64)
		if err != nil {
			skipped++
			continue
		}
		if !validTurn(start, dur) {
			skipped++
			continue
		}

		segments = append(segments, transcript.Segment{
			Start:   start,
			End:     start + dur,
			Speaker: fields[rttmSpeaker],
		})
	}
	return segments, skipped, sc.Err()
}

func validTurn(start, dur float64) bool {
	if math.IsNaN(start) || math.IsInf(start, 0) || math.IsNaN(dur) || math.IsInf(dur, 0) {
		return false
	}
	return start >= 0 && dur > 0
}
