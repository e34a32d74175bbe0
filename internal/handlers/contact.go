package handlers

import (
	"net/http"

	"github.com/baymax-health/apiserver/internal/services"
	"github.com/baymax-health/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const contactNotFound = "Contact not found"

// ContactHandler provides HTTP handlers for the address book.
type ContactHandler struct {
	contactService *services.ContactService
}

func NewContactHandler(contactService *services.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// ContactRouter registers contact routes. All of them require auth.
func ContactRouter(r chi.Router, h *ContactHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/", h.ListContacts)
	r.Post("/", h.CreateContact)
	r.Delete("/{contactID}", h.DeleteContact)
}

type ContactRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Phone string `json:"phone"`
}

type ContactResponse struct {
	Contact types.Contact `json:"contact"`
}

type ContactListResponse struct {
	Contacts []types.Contact `json:"contacts"`
}

func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	contacts, err := h.contactService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, contactNotFound, "Failed to fetch contacts")
		return
	}
	writeData(w, http.StatusOK, ContactListResponse{Contacts: contacts})
}

func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req ContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contact, err := h.contactService.Create(r.Context(), userID, services.ContactInput{
		Name:  req.Name,
		Type:  req.Type,
		Phone: req.Phone,
	})
	if err != nil {
		writeServiceError(w, r, err, contactNotFound, "Failed to add contact")
		return
	}
	writeData(w, http.StatusCreated, ContactResponse{Contact: contact})
}

func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.contactService.Delete(r.Context(), userID, chi.URLParam(r, "contactID")); err != nil {
		writeServiceError(w, r, err, contactNotFound, "Failed to delete contact")
		return
	}
	writeMessage(w, http.StatusOK, "Contact deleted successfully")
}
