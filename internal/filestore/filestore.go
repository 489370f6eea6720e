package filestore

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"LoaDamageMeter/internal/encounter"
)

const (
	// CompressedExt gzip压缩归档的扩展名
	CompressedExt = ".enc"
	// PlainExt 未压缩归档的扩展名
	PlainExt = ".json"
)

// ErrOutsideDir 请求的路径不在归档目录内
var ErrOutsideDir = errors.New("path outside encounter dir")

// Store 遭遇战文件归档：gzip压缩的JSON，文件名为 <毫秒时间戳>_<会话ID>
type Store struct {
	dir      string
	compress bool
	log      zerolog.Logger
}

// New 创建归档目录并返回Store
func New(dir string, compress bool, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create encounter dir failed: %w", err)
	}
	return &Store{dir: dir, compress: compress, log: log}, nil
}

// Dir 归档目录
func (s *Store) Dir() string {
	return s.dir
}

// Save 写入一份结算会话，返回落盘路径
func (s *Store) Save(session *encounter.Session) (string, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("marshal session failed: %w", err)
	}

	name := fmt.Sprintf("%d_%s", session.LastPacket, session.ID)
	if !s.compress {
		path := filepath.Join(s.dir, name+PlainExt)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", fmt.Errorf("write encounter failed: %w", err)
		}
		return path, nil
	}

	path := filepath.Join(s.dir, name+CompressedExt)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create encounter file failed: %w", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return "", fmt.Errorf("compress encounter failed: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("flush encounter failed: %w", err)
	}

	s.log.Debug().Str("path", path).Int("rawBytes", len(data)).Msg("saved encounter")
	return path, nil
}

// Read 读取一份归档会话（按扩展名识别是否压缩）；路径限定在归档目录内
func (s *Store) Read(path string) (*encounter.Session, error) {
	path, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open encounter failed: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, CompressedExt) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompress encounter failed: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read encounter failed: %w", err)
	}

	session := &encounter.Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("unmarshal encounter failed: %w", err)
	}
	return session, nil
}

// resolve 把路径解析到归档目录下，拒绝逃逸目录的路径
func (s *Store) resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideDir, path)
	}
	return path, nil
}

// EncounterFile 归档文件的目录项
type EncounterFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// List 按文件名倒序（时间戳前缀即时间倒序）列出最近n份归档
func (s *Store) List(n int) ([]EncounterFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read encounter dir failed: %w", err)
	}

	files := make([]EncounterFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, CompressedExt) && !strings.HasSuffix(name, PlainExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, EncounterFile{
			Name: name,
			Path: filepath.Join(s.dir, name),
			Size: info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name > files[j].Name })
	if n > 0 && len(files) > n {
		files = files[:n]
	}
	return files, nil
}

// LoadRecent 读取最近n份归档的降维快照
func (s *Store) LoadRecent(n int) ([]*encounter.SimpleSession, error) {
	files, err := s.List(n)
	if err != nil {
		return nil, err
	}

	recents := make([]*encounter.SimpleSession, 0, len(files))
	for _, file := range files {
		session, err := s.Read(file.Path)
		if err != nil {
			s.log.Warn().Err(err).Str("path", file.Path).Msg("skipping unreadable encounter")
			continue
		}
		session.Live = false
		recents = append(recents, session.ToSimple())
	}
	return recents, nil
}
