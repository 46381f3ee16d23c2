package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store is the append-only post archive: a single pretty-printed JSON array
// rewritten in full on every append. A missing or corrupt file reads as empty.
type Store struct {
	path   string
	mu     sync.Mutex
	now    func() time.Time
	logger *zap.Logger
}

func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{
		path:   path,
		now:    time.Now,
		logger: logger.Named("archive"),
	}
}

// Record appends p to the archive.
func (s *Store) Record(p PostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if err != nil {
		return err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode post: %w", err)
	}
	records = append(records, b)

	if err := s.writeLocked(records); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// ReadAll returns every archived record in append order. Entries that do
// not decode as a post are skipped but stay in the file.
func (s *Store) ReadAll() ([]PostRecord, error) {
	s.mu.Lock()
	raw, err := s.readLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	records := make([]PostRecord, 0, len(raw))
	for i, r := range raw {
		var p PostRecord
		if err := json.Unmarshal(r, &p); err != nil {
			s.logger.Warn("skipping undecodable archive entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		records = append(records, p)
	}
	return records, nil
}

// HandleUserUpdate converts a user-update payload and records it. Updates
// without a status carry no post and are ignored.
func (s *Store) HandleUserUpdate(data json.RawMessage) {
	update, err := ParseUserUpdate(data)
	if err != nil {
		s.logger.Warn("failed to parse user-update payload", zap.Error(err))
		return
	}

	post, ok := ToPostRecord(update, s.now())
	if !ok {
		return
	}

	if err := s.Record(post); err != nil {
		s.logger.Error("failed to save post", zap.String("screen_name", post.User.ScreenName), zap.Error(err))
		return
	}
	s.logger.Info("saved post", zap.String("screen_name", post.User.ScreenName), zap.String("file", s.path))
}

// readLocked returns the archive entries undecoded, so entries of any shape
// survive the next rewrite. Only a file that is not a JSON array reads as empty.
func (s *Store) readLocked() ([]json.RawMessage, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(b, &records); err != nil {
		s.logger.Warn("archive is not a JSON array, starting over", zap.String("file", s.path), zap.Error(err))
		return []json.RawMessage{}, nil
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

// writeLocked replaces the archive through a temp file and rename so a crash
// mid-write never leaves a truncated array behind.
func (s *Store) writeLocked(records []json.RawMessage) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// ToPostRecord builds the archived form of an update. It reports false when
// the update carries no status.
func ToPostRecord(u UserUpdate, now time.Time) (PostRecord, bool) {
	st := u.Status
	if st == nil {
		return PostRecord{}, false
	}

	text := st.FullText
	if text == "" {
		text = st.Text
	}

	avatar := u.TwitterUser.ProfileImageURLHTTPS
	if avatar == "" {
		avatar = u.TwitterUser.AvatarURL
	}

	ts := now.UTC().Format(time.RFC3339Nano)
	createdAt := st.CreatedAt
	if createdAt == "" {
		createdAt = ts
	}

	return PostRecord{
		User: PostUser{
			Name:       u.TwitterUser.Name,
			ScreenName: u.TwitterUser.ScreenName,
			AvatarURL:  avatar,
		},
		Text: text,
		Stats: PostStats{
			FavoriteCount: firstCount(st.FavoriteCountSnake, st.FavoriteCount),
			RetweetCount:  firstCount(st.RetweetCountSnake, st.RetweetCount),
			BookmarkCount: firstCount(st.BookmarkCountSnake, st.BookmarkCount),
			ViewCount:     firstCount(st.ViewCountSnake, st.ViewCount),
			QuoteCount:    firstCount(st.QuoteCountSnake, st.QuoteCount),
			ReplyCount:    firstCount(st.ReplyCountSnake, st.ReplyCount),
		},
		Dates: PostDates{
			CreatedAt: createdAt,
			UpdatedAt: ts,
		},
	}, true
}
