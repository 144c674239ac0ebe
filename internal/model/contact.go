// internal/model/contact.go
package model

type Contact struct {
	Name  string `csv:"name" json:"name" validate:"required"`
	Email string `csv:"email" json:"email" validate:"required"`
}

type Link struct {
	WebsiteName string `csv:"website name" json:"website name" validate:"required"`
	URL         string `csv:"url" json:"url" validate:"required"`
}
