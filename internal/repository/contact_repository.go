package repository

import (
	"path/filepath"
	"strings"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
)

const (
	ContactsFile = "brands.csv"
	LinksFile    = "links.csv"
)

// ContactRepositoryInterface defines methods used by services
type ContactRepositoryInterface interface {
	ListAll() ([]model.Contact, error)
	Add(c model.Contact) error
	UpdateAt(index int, c model.Contact) error
	DeleteAt(index int) error
}

// ContactRepository is backed by brands.csv (name,email)
type ContactRepository struct {
	table csvTable[model.Contact]
}

func NewContactRepository(dataDir string) *ContactRepository {
	return &ContactRepository{table: csvTable[model.Contact]{path: filepath.Join(dataDir, ContactsFile)}}
}

func (r *ContactRepository) ListAll() ([]model.Contact, error) {
	return r.table.List()
}

func (r *ContactRepository) Add(c model.Contact) error {
	return r.table.modify(func(rows []model.Contact) ([]model.Contact, error) {
		return append(rows, c), nil
	})
}

func (r *ContactRepository) UpdateAt(index int, c model.Contact) error {
	return r.table.modify(func(rows []model.Contact) ([]model.Contact, error) {
		if index < 0 || index >= len(rows) {
			return nil, appErrors.ErrIndexOutOfRange
		}
		rows[index] = c
		return rows, nil
	})
}

func (r *ContactRepository) DeleteAt(index int) error {
	return r.table.modify(func(rows []model.Contact) ([]model.Contact, error) {
		if index < 0 || index >= len(rows) {
			return nil, appErrors.ErrIndexOutOfRange
		}
		return append(rows[:index], rows[index+1:]...), nil
	})
}

// ContactDirectory indexes contacts by trimmed email address.
type ContactDirectory map[string]model.Contact

func NewContactDirectory(contacts []model.Contact) ContactDirectory {
	dir := make(ContactDirectory, len(contacts))
	for _, c := range contacts {
		key := strings.TrimSpace(c.Email)
		if _, ok := dir[key]; ok {
			continue // first match wins
		}
		dir[key] = c
	}
	return dir
}

func (d ContactDirectory) Lookup(email string) (model.Contact, bool) {
	c, ok := d[strings.TrimSpace(email)]
	return c, ok
}

type LinkRepositoryInterface interface {
	ListAll() ([]model.Link, error)
	Add(l model.Link) error
	UpdateAt(index int, l model.Link) error
	DeleteAt(index int) error
}

// LinkRepository is backed by links.csv (website name,url)
type LinkRepository struct {
	table csvTable[model.Link]
}

func NewLinkRepository(dataDir string) *LinkRepository {
	return &LinkRepository{table: csvTable[model.Link]{path: filepath.Join(dataDir, LinksFile)}}
}

func (r *LinkRepository) ListAll() ([]model.Link, error) {
	return r.table.List()
}

func (r *LinkRepository) Add(l model.Link) error {
	return r.table.modify(func(rows []model.Link) ([]model.Link, error) {
		return append(rows, l), nil
	})
}

func (r *LinkRepository) UpdateAt(index int, l model.Link) error {
	return r.table.modify(func(rows []model.Link) ([]model.Link, error) {
		if index < 0 || index >= len(rows) {
			return nil, appErrors.ErrIndexOutOfRange
		}
		rows[index] = l
		return rows, nil
	})
}

func (r *LinkRepository) DeleteAt(index int) error {
	return r.table.modify(func(rows []model.Link) ([]model.Link, error) {
		if index < 0 || index >= len(rows) {
			return nil, appErrors.ErrIndexOutOfRange
		}
		return append(rows[:index], rows[index+1:]...), nil
	})
}

var (
	_ ContactRepositoryInterface = (*ContactRepository)(nil)
	_ LinkRepositoryInterface    = (*LinkRepository)(nil)
)
