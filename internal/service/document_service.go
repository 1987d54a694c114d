package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"famhealth/internal/blob"
	"famhealth/internal/models"
	"famhealth/internal/repository"
	"famhealth/internal/validation"
)

var ErrEmptyUpload = errors.New("uploaded file is empty")

// maxKeyAttempts bounds the search for a free blob key
const maxKeyAttempts = 5

// DocumentInput carries document metadata as sent by the client
type DocumentInput struct {
	Title        string `json:"title"`
	DocumentType string `json:"document_type"`
	DocumentDate string `json:"document_date"`
	Notes        string `json:"notes"`
}

func (in DocumentInput) apply(d *models.Document) error {
	if err := validation.ValidateRequired("title", in.Title); err != nil {
		return err
	}
	if err := validation.ValidateMaxLength("title", in.Title, 200); err != nil {
		return err
	}
	date, err := validation.ParseDate("document_date", in.DocumentDate)
	if err != nil {
		return err
	}

	d.Title = strings.TrimSpace(in.Title)
	d.DocumentType = strings.TrimSpace(in.DocumentType)
	d.DocumentDate = date
	d.Notes = in.Notes
	return nil
}

// Upload is a file received from the client
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// DocumentService stores document files in blob storage and their
// metadata in the documents table.
type DocumentService struct {
	docRepo       *repository.DocumentRepository
	blobs         blob.Store
	publicBaseURL string
	urlExpiry     time.Duration
	now           func() time.Time
}

// NewDocumentService creates a new document service. When publicBaseURL is
// set, uploaded files are assumed to be reachable at publicBaseURL/<key>.
func NewDocumentService(docRepo *repository.DocumentRepository, blobs blob.Store, publicBaseURL string, urlExpiry time.Duration) *DocumentService {
	return &DocumentService{
		docRepo:       docRepo,
		blobs:         blobs,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		urlExpiry:     urlExpiry,
		now:           time.Now,
	}
}

// ListDocuments returns the active member's documents, newest first
func (s *DocumentService) ListDocuments(userID string, active models.ActiveMember) (RecordList[models.Document], error) {
	items, err := s.docRepo.ListByMember(userID, active.ID)
	if err != nil {
		return RecordList[models.Document]{}, err
	}
	return newRecordList(active, items, "documents"), nil
}

// GetDocument returns a document owned by userID
func (s *DocumentService) GetDocument(userID, id string) (*models.Document, error) {
	d, err := s.docRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if d == nil || d.OwnerID != userID {
		return nil, ErrRecordNotFound
	}
	return d, nil
}

// blobKey names a file as <memberId>/<unixMillis>.<ext>
func blobKey(memberID, filename, contentType string, at time.Time) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = strings.TrimPrefix(exts[0], ".")
		}
	}
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d.%s", memberID, at.UnixMilli(), ext)
}

// CreateDocument uploads a file for the active member and records it
func (s *DocumentService) CreateDocument(ctx context.Context, userID string, active models.ActiveMember, in DocumentInput, up Upload) (*models.Document, error) {
	d := &models.Document{OwnerID: userID, MemberID: active.ID}
	if err := in.apply(d); err != nil {
		return nil, err
	}

	contentType := up.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(up.Filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	opts := blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"owner": userID, "filename": filepath.Base(up.Filename)},
	}
	// Uploads landing in the same millisecond move on to the next free one
	at := s.now()
	var (
		key  string
		info blob.Info
		err  error
	)
	for i := 0; i < maxKeyAttempts; i++ {
		key = blobKey(active.ID, up.Filename, contentType, at.Add(time.Duration(i)*time.Millisecond))
		info, err = s.blobs.Put(ctx, key, up.Body, opts)
		if !errors.Is(err, blob.ErrExists) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store document file: %w", err)
	}
	if info.Size == 0 {
		_, _ = s.blobs.Delete(ctx, key)
		return nil, ErrEmptyUpload
	}

	d.FilePath = key
	d.ContentType = contentType
	d.SizeBytes = info.Size
	if s.publicBaseURL != "" {
		d.FileURL = s.publicBaseURL + "/" + key
	}

	if err := s.docRepo.Create(d); err != nil {
		if _, delErr := s.blobs.Delete(ctx, key); delErr != nil {
			log.Printf("Error removing orphaned document file %s: %v", key, delErr)
		}
		return nil, err
	}
	return d, nil
}

// UpdateDocument edits a document's metadata. The stored file is unchanged.
func (s *DocumentService) UpdateDocument(userID, id string, in DocumentInput) (*models.Document, error) {
	d, err := s.GetDocument(userID, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(d); err != nil {
		return nil, err
	}
	if err := s.docRepo.Update(d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDocument removes a document row and, best effort, its file
func (s *DocumentService) DeleteDocument(ctx context.Context, userID, id string) error {
	d, err := s.GetDocument(userID, id)
	if err != nil {
		return err
	}
	if err := s.docRepo.Delete(userID, id); err != nil {
		return err
	}
	if _, err := s.blobs.Delete(ctx, d.FilePath); err != nil {
		log.Printf("Error deleting document file %s: %v", d.FilePath, err)
	}
	return nil
}

// DownloadPath is the API route that streams a document's file
func DownloadPath(id string) string {
	return "/api/documents/" + id + "/file"
}

// SignedURL returns a time-limited URL for a document's file. Drivers that
// cannot presign fall back to the authenticated download route.
func (s *DocumentService) SignedURL(ctx context.Context, userID, id string) (string, time.Time, error) {
	d, err := s.GetDocument(userID, id)
	if err != nil {
		return "", time.Time{}, err
	}

	url, err := s.blobs.PresignURL(ctx, d.FilePath, blob.SignedURLOptions{Expiry: s.urlExpiry})
	if errors.Is(err, blob.ErrUnsupported) {
		return DownloadPath(d.ID), time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, err
	}
	return url, s.now().Add(s.urlExpiry), nil
}

// OpenFile streams a document's file. The caller closes the reader.
func (s *DocumentService) OpenFile(ctx context.Context, userID, id string) (*models.Document, io.ReadCloser, error) {
	d, err := s.GetDocument(userID, id)
	if err != nil {
		return nil, nil, err
	}
	_, rc, err := s.blobs.Get(ctx, d.FilePath)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open document file: %w", err)
	}
	return d, rc, nil
}
