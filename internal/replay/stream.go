// Package replay reads a recorded L3 feed from disk as a sequence of
// (message, snapshot) events, with exactly one side populated per
// yield: JSON snapshot files and newline-delimited JSON message files,
// sequence-ordered. It detects sequence-number gaps against a
// max-sequence-skip threshold and resynchronizes by reloading the next
// available snapshot.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"larkbook/internal/common"
	"larkbook/internal/market"
)

// RawMessage is the columnar message-file record.
type RawMessage struct {
	OrderType string  `json:"order_type"`
	Reason    string  `json:"reason"`
	Sequence  int64   `json:"sequence"`
	Side      int     `json:"side"`
	Size      float64 `json:"size"`
	Type      string  `json:"type"`
	Price     float64 `json:"price"`
	Funds     float64 `json:"funds"`
	OrderID   string  `json:"order_id"`
	Time      string  `json:"time"`
	TraderID  int64   `json:"trader_id"`
}

// ToMarketMessage converts the wire record into the engine-facing
// market.Message. Every replay-sourced message is external by
// definition — agent-authored orders arrive through the TCP intake
// path (internal/ordwire), not through the replay stream.
func (r RawMessage) ToMarketMessage() market.Message {
	msg := market.Message{
		Type:            market.MessageType(r.Type),
		Side:            common.Side(r.Side),
		Price:           r.Price,
		Size:            r.Size,
		Funds:           r.Funds,
		TraderID:        r.TraderID,
		ExternalOrderID: r.OrderID,
		Reason:          market.DoneReason(r.Reason),
		Time:            r.Time,
		External:        true,
	}
	switch r.OrderType {
	case "market":
		msg.OrderType = common.MarketOrder
	default:
		msg.OrderType = common.LimitOrder
	}
	return msg
}

// RawSnapshot is the on-disk snapshot format: bids/asks as
// [price_str, size_str, external_id_str] triples.
type RawSnapshot struct {
	Sequence int64      `json:"sequence"`
	Bids     [][3]string `json:"bids"`
	Asks     [][3]string `json:"asks"`
}

// ToMarketSnapshot parses the string-encoded triples into a
// market.Snapshot.
func (r RawSnapshot) ToMarketSnapshot() (market.Snapshot, error) {
	conv := func(rows [][3]string) ([]market.SnapshotOrder, error) {
		out := make([]market.SnapshotOrder, 0, len(rows))
		for _, row := range rows {
			price, err := strconv.ParseFloat(row[0], 64)
			if err != nil {
				return nil, fmt.Errorf("replay: bad snapshot price %q: %w", row[0], err)
			}
			size, err := strconv.ParseFloat(row[1], 64)
			if err != nil {
				return nil, fmt.Errorf("replay: bad snapshot size %q: %w", row[1], err)
			}
			out = append(out, market.SnapshotOrder{Price: price, Size: size, ExternalOrderID: row[2]})
		}
		return out, nil
	}
	bids, err := conv(r.Bids)
	if err != nil {
		return market.Snapshot{}, err
	}
	asks, err := conv(r.Asks)
	if err != nil {
		return market.Snapshot{}, err
	}
	return market.Snapshot{Sequence: r.Sequence, Bids: bids, Asks: asks}, nil
}

// Event is one yield of the replay stream: exactly one of Message or
// Snapshot is non-nil.
type Event struct {
	Message  *RawMessage
	Snapshot *RawSnapshot
}

var snapSeqPattern = regexp.MustCompile(`\d+`)

type snapFile struct {
	path     string
	sequence int64
}

// Stream reads a directory of snapshot files (ordered by sequence) and
// a directory of message files (in filename order), and yields Events
// honoring the gap/resync contract.
type Stream struct {
	snaps        []snapFile
	msgFiles     []string
	maxSeqSkip   int64

	started      bool
	snapIdx      int
	msgFileIdx   int
	scanner      *bufio.Scanner
	currentFile  *os.File
	prevSequence int64
	snapSequence int64
}

// NewStream builds a Stream over snapshotDir (each file's sequence is
// the first run of digits in its name, e.g. "snap_000123.json") and
// messageDir (NDJSON files consumed in lexical filename order).
func NewStream(snapshotDir, messageDir string, maxSequenceSkip int64) (*Stream, error) {
	snapEntries, err := os.ReadDir(snapshotDir)
	if err != nil {
		return nil, fmt.Errorf("replay: reading snapshot dir: %w", err)
	}
	var snaps []snapFile
	for _, e := range snapEntries {
		if e.IsDir() {
			continue
		}
		m := snapSeqPattern.FindString(e.Name())
		if m == "" {
			continue
		}
		seq, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		snaps = append(snaps, snapFile{path: filepath.Join(snapshotDir, e.Name()), sequence: seq})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].sequence < snaps[j].sequence })
	if len(snaps) == 0 {
		return nil, fmt.Errorf("replay: no snapshot files found in %s", snapshotDir)
	}

	msgEntries, err := os.ReadDir(messageDir)
	if err != nil {
		return nil, fmt.Errorf("replay: reading message dir: %w", err)
	}
	var msgFiles []string
	for _, e := range msgEntries {
		if e.IsDir() {
			continue
		}
		msgFiles = append(msgFiles, filepath.Join(messageDir, e.Name()))
	}
	sort.Strings(msgFiles)

	if maxSequenceSkip <= 0 {
		maxSequenceSkip = 1
	}

	return &Stream{
		snaps:      snaps,
		msgFiles:   msgFiles,
		maxSeqSkip: maxSequenceSkip,
	}, nil
}

// Close releases the currently open message file, if any.
func (s *Stream) Close() error {
	if s.currentFile != nil {
		return s.currentFile.Close()
	}
	return nil
}

func (s *Stream) loadSnapshot(idx int) (RawSnapshot, error) {
	f, err := os.Open(s.snaps[idx].path)
	if err != nil {
		return RawSnapshot{}, err
	}
	defer f.Close()
	var snap RawSnapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return RawSnapshot{}, fmt.Errorf("replay: decoding snapshot %s: %w", s.snaps[idx].path, err)
	}
	return snap, nil
}

// resyncIndex returns the index of the first snapshot whose sequence
// is >= seq, mirroring data_all/orderstream.py's
// `(snap_sequences >= order.sequence).argmax()` lookup. If no snapshot
// reaches seq, the index of the last snapshot is returned.
func (s *Stream) resyncIndex(seq int64) int {
	for i, sf := range s.snaps {
		if sf.sequence >= seq {
			return i
		}
	}
	return len(s.snaps) - 1
}

func (s *Stream) openNextMessageFile() bool {
	for s.msgFileIdx < len(s.msgFiles) {
		path := s.msgFiles[s.msgFileIdx]
		s.msgFileIdx++
		f, err := os.Open(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("replay: failed to open message file, skipping")
			continue
		}
		if s.currentFile != nil {
			s.currentFile.Close()
		}
		s.currentFile = f
		s.scanner = bufio.NewScanner(f)
		s.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		return true
	}
	return false
}

func (s *Stream) nextLine() (RawMessage, bool, error) {
	for {
		if s.scanner == nil {
			if !s.openNextMessageFile() {
				return RawMessage{}, false, nil
			}
		}
		if s.scanner.Scan() {
			line := s.scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			msg := RawMessage{Price: -1, Size: -1, Funds: -1}
			if err := json.Unmarshal(line, &msg); err != nil {
				return RawMessage{}, false, fmt.Errorf("replay: decoding message line: %w", err)
			}
			return msg, true, nil
		}
		if err := s.scanner.Err(); err != nil {
			return RawMessage{}, false, err
		}
		s.scanner = nil
		if !s.openNextMessageFile() {
			return RawMessage{}, false, nil
		}
	}
}

// Next returns the next Event, or io.EOF once every message file has
// been consumed. The first call always returns a snapshot.
func (s *Stream) Next() (Event, error) {
	if !s.started {
		s.started = true
		snap, err := s.loadSnapshot(s.snapIdx)
		if err != nil {
			return Event{}, err
		}
		s.snapSequence = snap.Sequence
		s.prevSequence = snap.Sequence
		return Event{Snapshot: &snap}, nil
	}

	for {
		msg, ok, err := s.nextLine()
		if err != nil {
			return Event{}, err
		}
		if !ok {
			return Event{}, io.EOF
		}

		gap := msg.Sequence-s.prevSequence > s.maxSeqSkip
		predates := msg.Sequence < s.snapSequence
		s.prevSequence = msg.Sequence

		if predates {
			// Predates the current snapshot; skip silently. prevSequence
			// still advances past it, above, so the next gap check is
			// measured from this message rather than a stale baseline.
			continue
		}

		if gap {
			log.Warn().
				Int64("sequence", msg.Sequence).
				Msg("replay: sequence gap exceeds max_sequence_skip, resynchronizing from snapshot")
			idx := s.resyncIndex(msg.Sequence)
			snap, err := s.loadSnapshot(idx)
			if err != nil {
				return Event{}, err
			}
			s.snapIdx = idx
			s.snapSequence = snap.Sequence
			return Event{Snapshot: &snap}, nil
		}

		return Event{Message: &msg}, nil
	}
}

// ForceResync advances straight to the next snapshot after the one
// currently in effect and returns it, for callers that detect a book
// inconsistency (crossed book, one side gone empty) outside the
// sequence-gap path above. It returns io.EOF if no further snapshot
// exists.
func (s *Stream) ForceResync() (RawSnapshot, error) {
	idx := s.snapIdx + 1
	if idx >= len(s.snaps) {
		return RawSnapshot{}, io.EOF
	}
	snap, err := s.loadSnapshot(idx)
	if err != nil {
		return RawSnapshot{}, err
	}
	s.snapIdx = idx
	s.snapSequence = snap.Sequence
	s.prevSequence = snap.Sequence
	return snap, nil
}
