package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
	"github.com/jhoicas/pos-inventario/pkg/logger"
	"github.com/spf13/afero"
)

var _ repository.QueueStorage = (*FileStore)(nil)

const (
	docExt     = ".json"
	tmpExt     = ".tmp"
	corruptExt = ".corrupt"
)

// FileStore almacenamiento de la cola offline: un documento JSON por pedido en dir.
// Cada escritura va a un archivo temporal que luego se renombra, así un corte de luz deja
// el documento anterior o el nuevo, nunca uno a medias.
type FileStore struct {
	fs  afero.Fs
	dir string
	log *logger.Logger
}

// NewFileStore crea dir si no existe. En producción fs es afero.NewOsFs(); en tests afero.NewMemMapFs().
func NewFileStore(fs afero.Fs, dir string, log *logger.Logger) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("crear directorio de cola %s: %w", dir, err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &FileStore{fs: fs, dir: dir, log: log.Component("queue_store")}, nil
}

// Save escribe (o reemplaza) el documento del pedido.
func (s *FileStore) Save(_ context.Context, order *entity.QueuedOrder) error {
	path, err := s.path(order.LocalID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(order, "", "  ")
	if err != nil {
		return fmt.Errorf("serializar pedido %s: %w", order.LocalID, err)
	}

	tmp := path + tmpExt
	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("abrir %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("escribir %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cerrar %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("renombrar %s: %w", tmp, err)
	}
	return nil
}

// Get lee un pedido. Un documento ilegible se pone en cuarentena y se reporta como no encontrado.
func (s *FileStore) Get(_ context.Context, localID string) (*entity.QueuedOrder, error) {
	path, err := s.path(localID)
	if err != nil {
		return nil, err
	}
	order, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// List devuelve todos los documentos legibles, sin orden garantizado.
func (s *FileStore) List(_ context.Context) ([]*entity.QueuedOrder, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("leer directorio de cola: %w", err)
	}
	orders := make([]*entity.QueuedOrder, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || filepath.Ext(info.Name()) != docExt {
			continue
		}
		order, err := s.read(filepath.Join(s.dir, info.Name()))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// Delete borra el documento; domain.ErrNotFound si no existe.
func (s *FileStore) Delete(_ context.Context, localID string) error {
	path, err := s.path(localID)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("borrar %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) read(path string) (*entity.QueuedOrder, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("leer %s: %w", path, err)
	}
	var order entity.QueuedOrder
	if err := json.Unmarshal(data, &order); err != nil || order.LocalID == "" {
		s.quarantine(path, err)
		return nil, domain.ErrNotFound
	}
	return &order, nil
}

func (s *FileStore) quarantine(path string, cause error) {
	target := strings.TrimSuffix(path, docExt) + corruptExt
	if err := s.fs.Rename(path, target); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("no se pudo poner en cuarentena el documento")
		return
	}
	s.log.Error().Err(cause).Str("path", target).Msg("documento de cola ilegible, movido a cuarentena")
}

func (s *FileStore) path(localID string) (string, error) {
	if localID == "" || strings.ContainsAny(localID, `/\`) || strings.Contains(localID, "..") {
		return "", domain.ErrInvalidInput
	}
	return filepath.Join(s.dir, localID+docExt), nil
}
