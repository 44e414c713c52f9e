// Package catalog defines the catalog data model shared by every pipeline
// stage: the committed Record and its placeholder variants, the insertion
// ordered RecordSet that doubles as the resume ledger, and the closed
// vocabularies classification fields must belong to.
package catalog
