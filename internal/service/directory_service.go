package service

import (
	"fmt"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/model"
	"github.com/unclebandit/coldmail-backend/internal/repository"
)

const (
	ActionAdd    = "add"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

type ContactEdit struct {
	Action  string        `json:"action"`
	Contact model.Contact `json:"brand"`
	Index   int           `json:"index"`
}

type LinkEdit struct {
	Action string     `json:"action"`
	Link   model.Link `json:"link"`
	Index  int        `json:"index"`
}

// DirectoryService edits the contact and link lists by position.
type DirectoryService struct {
	ContactRepo repository.ContactRepositoryInterface
	LinkRepo    repository.LinkRepositoryInterface
}

func (s *DirectoryService) Contacts() ([]model.Contact, error) {
	return s.ContactRepo.ListAll()
}

func (s *DirectoryService) Links() ([]model.Link, error) {
	return s.LinkRepo.ListAll()
}

func (s *DirectoryService) EditContact(e ContactEdit) error {
	switch e.Action {
	case ActionAdd:
		if err := validateStruct(e.Contact); err != nil {
			return err
		}
		return s.ContactRepo.Add(e.Contact)
	case ActionUpdate:
		if err := validateStruct(e.Contact); err != nil {
			return err
		}
		return s.ContactRepo.UpdateAt(e.Index, e.Contact)
	case ActionDelete:
		return s.ContactRepo.DeleteAt(e.Index)
	}
	return invalidAction(e.Action)
}

func (s *DirectoryService) EditLink(e LinkEdit) error {
	switch e.Action {
	case ActionAdd:
		if err := validateStruct(e.Link); err != nil {
			return err
		}
		return s.LinkRepo.Add(e.Link)
	case ActionUpdate:
		if err := validateStruct(e.Link); err != nil {
			return err
		}
		return s.LinkRepo.UpdateAt(e.Index, e.Link)
	case ActionDelete:
		return s.LinkRepo.DeleteAt(e.Index)
	}
	return invalidAction(e.Action)
}

func invalidAction(action string) error {
	return appErrors.NewValidationError("action", fmt.Sprintf("unknown action %q", action))
}
