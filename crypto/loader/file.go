package loader

import (
	"os"
	"path/filepath"

	"golang.org/x/xerrors"
)

// fileLoader is loader that is storing the new keys to a file.
//
// - implements loader.Loader
type fileLoader struct {
	path string

	mkdirFn     func(path string, perms os.FileMode) error
	readFileFn  func(path string) ([]byte, error)
	writeFileFn func(path string, data []byte, perms os.FileMode) error
	statFn      func(path string) (os.FileInfo, error)
}

// NewFileLoader creates a new loader that is using the file given in parameter.
func NewFileLoader(path string) Loader {
	return fileLoader{
		path:        path,
		mkdirFn:     os.MkdirAll,
		readFileFn:  os.ReadFile,
		writeFileFn: os.WriteFile,
		statFn:      os.Stat,
	}
}

// LoadOrCreate implements loader.Loader. It either loads the key from the file
// if it exists, or it generates a new one and stores it in the file. The file
// created has minimal read permission for the current user (0400).
func (l fileLoader) LoadOrCreate(g Generator) ([]byte, error) {
	_, err := l.statFn(l.path)
	if os.IsNotExist(err) {
		data, err := g.Generate()
		if err != nil {
			return nil, xerrors.Errorf("generator failed: %v", err)
		}

		err = l.mkdirFn(filepath.Dir(l.path), 0700)
		if err != nil {
			return nil, xerrors.Errorf("while creating directory: %v", err)
		}

		err = l.writeFileFn(l.path, data, 0400)
		if err != nil {
			return nil, xerrors.Errorf("while writing: %v", err)
		}

		return data, nil
	}

	data, err := l.Load()
	if err != nil {
		return nil, xerrors.Errorf("failed to load file: %v", err)
	}

	return data, nil
}

// Load implements loader.Loader. It loads the key from the file if it exists,
// otherwise it returns an error.
func (l fileLoader) Load() ([]byte, error) {
	data, err := l.readFileFn(l.path)
	if err != nil {
		return nil, xerrors.Errorf("while reading file: %v", err)
	}

	return data, nil
}
