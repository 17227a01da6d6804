package multipart

import (
	"os"

	"github.com/google/uuid"

	"github.com/curol/reqdata/reqconfig"
)

// spool implements param.SpoolHandle: an in-memory buffer promoted to a
// temp file once max_brigade_bytes is exceeded. The temp file is named
// with a per-part UUID so concurrently-spooling parts in the same
// temp_dir never collide, satisfying the "unique-per-part token"
// requirement of spec section 6.
type spool struct {
	cfg *reqconfig.Config

	mem       []byte
	file      *os.File
	path      string
	size      int64
	promoted  bool
}

func newSpool(cfg *reqconfig.Config) *spool {
	return &spool{cfg: cfg}
}

func (s *spool) Write(p []byte) (int, error) {
	if !s.promoted && s.cfg != nil && s.cfg.MaxBrigadeBytes > 0 &&
		uint64(len(s.mem)+len(p)) > s.cfg.MaxBrigadeBytes {
		if err := s.promote(); err != nil {
			return 0, err
		}
	}
	if s.promoted {
		n, err := s.file.Write(p)
		s.size += int64(n)
		return n, err
	}
	s.mem = append(s.mem, p...)
	s.size += int64(len(p))
	return len(p), nil
}

func (s *spool) promote() error {
	dir := ""
	if s.cfg != nil {
		dir = s.cfg.TempDir
	}
	f, err := os.CreateTemp(dir, "upload-"+uuid.NewString()+"-*.spool")
	if err != nil {
		return err
	}
	if len(s.mem) > 0 {
		if _, err := f.Write(s.mem); err != nil {
			f.Close()
			return err
		}
	}
	s.file = f
	s.path = f.Name()
	s.mem = nil
	s.promoted = true
	return nil
}

func (s *spool) Size() int64      { return s.size }
func (s *spool) InMemory() bool   { return !s.promoted }
func (s *spool) Path() string     { return s.path }
func (s *spool) Bytes() []byte    { return s.mem }

func (s *spool) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
