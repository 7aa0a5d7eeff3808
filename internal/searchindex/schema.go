// Package searchindex maintains the embedded full-text index that
// rides alongside the email backup.
package searchindex

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Index field names. FieldID/FieldBlobID/FieldSubject are stored and
// can be projected into search results; the rest are searchable only.
const (
	FieldID        = "id"
	FieldBlobID    = "blob_id"
	FieldSubject   = "subject"
	FieldFromName  = "from_name"
	FieldFromEmail = "from_email"
	FieldToName    = "to_name"
	FieldToEmail   = "to_email"
	FieldCcName    = "cc_name"
	FieldCcEmail   = "cc_email"
	FieldBody      = "body"
)

// storedFields are the fields a query may project.
var storedFields = map[string]bool{
	FieldID:      true,
	FieldBlobID:  true,
	FieldSubject: true,
}

// buildMapping constructs the index schema. It is built exactly once,
// when the index is opened, and shared for the process lifetime; the
// schema is immutable after construction.
func buildMapping() mapping.IndexMapping {
	stored := bleve.NewTextFieldMapping()

	searchOnly := bleve.NewTextFieldMapping()
	searchOnly.Store = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(FieldID, stored)
	doc.AddFieldMappingsAt(FieldBlobID, stored)
	doc.AddFieldMappingsAt(FieldSubject, stored)
	doc.AddFieldMappingsAt(FieldFromName, stored)
	doc.AddFieldMappingsAt(FieldFromEmail, stored)
	doc.AddFieldMappingsAt(FieldToName, stored)
	doc.AddFieldMappingsAt(FieldToEmail, stored)
	doc.AddFieldMappingsAt(FieldCcName, searchOnly)
	doc.AddFieldMappingsAt(FieldCcEmail, searchOnly)
	doc.AddFieldMappingsAt(FieldBody, searchOnly)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}
