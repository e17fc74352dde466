package ui

import (
	"errors"
	"io"
)

// ModalContent is what a modal shows
type ModalContent struct {
	Title    string
	ImageURL string
}

// Modal is a dialog the controllers can open and close
type Modal interface {
	Open(content ModalContent) error
	Close() error
}

var errModalClosed = errors.New("modal is not open")

// HTMLModal renders the modaleFileEmployee fragment to w
type HTMLModal struct {
	w     io.Writer
	views *Views
	open  bool
}

// NewHTMLModal creates a modal writing to w
func NewHTMLModal(w io.Writer, views *Views) *HTMLModal {
	return &HTMLModal{w: w, views: views}
}

// Open renders the modal. Opening an open modal renders it again.
func (m *HTMLModal) Open(content ModalContent) error {
	if err := m.views.RenderPartial(m.w, "modal", content); err != nil {
		return err
	}
	m.open = true
	return nil
}

// Close marks the modal closed; the browser hides it on its own
func (m *HTMLModal) Close() error {
	if !m.open {
		return errModalClosed
	}
	m.open = false
	return nil
}

// IsOpen reports whether Open was the last call
func (m *HTMLModal) IsOpen() bool {
	return m.open
}
