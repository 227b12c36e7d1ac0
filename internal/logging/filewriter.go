package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileWriter is an io.WriteCloser that rotates its file once it grows past
// maxSize. Rotated files are named <path>.<timestamp> and optionally gzipped.
type FileWriter struct {
	mu          sync.Mutex
	file        *os.File
	path        string
	maxSize     int64
	maxBackups  int
	maxAge      int
	compress    bool
	currentSize int64

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

// NewFileWriter opens path for appending. Sizes are in megabytes and ages in
// days; zero disables the corresponding limit.
func NewFileWriter(path string, maxSizeMB, maxBackups, maxAge int, compress bool) (*FileWriter, error) {
	fw := &FileWriter{
		path:       path,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		maxBackups: maxBackups,
		maxAge:     maxAge,
		compress:   compress,
		stop:       make(chan struct{}),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	fw.mu.Lock()
	err := fw.openFile()
	if err == nil && fw.maxSize > 0 && fw.currentSize >= fw.maxSize {
		err = fw.rotate()
	}
	fw.mu.Unlock()
	if err != nil {
		return nil, err
	}

	fw.wg.Add(1)
	go fw.cleanupLoop()

	return fw, nil
}

func (fw *FileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.file == nil {
		return 0, os.ErrClosed
	}
	if fw.maxSize > 0 && fw.currentSize+int64(len(p)) > fw.maxSize && fw.currentSize > 0 {
		if err := fw.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := fw.file.Write(p)
	fw.currentSize += int64(n)
	return n, err
}

// Close stops background cleanup, waits for pending compression and closes
// the file.
func (fw *FileWriter) Close() error {
	fw.once.Do(func() { close(fw.stop) })
	fw.wg.Wait()

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.file == nil {
		return nil
	}
	err := fw.file.Close()
	fw.file = nil
	return err
}

func (fw *FileWriter) openFile() error {
	fw.currentSize = 0
	if info, err := os.Stat(fw.path); err == nil {
		fw.currentSize = info.Size()
	}

	file, err := os.OpenFile(fw.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	fw.file = file
	return nil
}

// rotate must be called with mu held.
func (fw *FileWriter) rotate() error {
	if fw.file != nil {
		if err := fw.file.Close(); err != nil {
			return err
		}
		fw.file = nil
	}

	backupPath := fmt.Sprintf("%s.%s", fw.path, time.Now().Format("20060102-150405.000000000"))
	if err := os.Rename(fw.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	if fw.compress {
		fw.wg.Add(1)
		go func() {
			defer fw.wg.Done()
			_ = compressFile(backupPath)
		}()
	}

	return fw.openFile()
}

// compressFile gzips path into path.gz and removes the original.
func compressFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(path+".gz", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(dst)
	zw.Name = filepath.Base(path)
	if _, err := io.Copy(zw, src); err != nil {
		zw.Close()
		dst.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	src.Close()
	return os.Remove(path)
}

func (fw *FileWriter) cleanupLoop() {
	defer fw.wg.Done()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	fw.performCleanup()
	for {
		select {
		case <-ticker.C:
			fw.performCleanup()
		case <-fw.stop:
			return
		}
	}
}

// performCleanup drops backups older than maxAge, then all but the newest
// maxBackups.
func (fw *FileWriter) performCleanup() {
	matches, err := filepath.Glob(fw.path + ".*")
	if err != nil {
		return
	}

	type backup struct {
		path string
		mod  time.Time
	}
	var backups []backup
	for _, m := range matches {
		if m == fw.path {
			continue
		}
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		backups = append(backups, backup{path: m, mod: info.ModTime()})
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].mod.Equal(backups[j].mod) {
			return strings.Compare(backups[i].path, backups[j].path) > 0
		}
		return backups[i].mod.After(backups[j].mod)
	})

	kept := backups[:0]
	if fw.maxAge > 0 {
		cutoff := time.Now().AddDate(0, 0, -fw.maxAge)
		for _, b := range backups {
			if b.mod.Before(cutoff) {
				_ = os.Remove(b.path)
				continue
			}
			kept = append(kept, b)
		}
	} else {
		kept = backups
	}

	if fw.maxBackups > 0 && len(kept) > fw.maxBackups {
		for _, b := range kept[fw.maxBackups:] {
			_ = os.Remove(b.path)
		}
	}
}
