// Package catalogdb mirrors the record set into a SQLite database so the
// catalog can be queried with SQL. It is an optional secondary sink: every
// commit replaces the table contents inside one transaction.
package catalogdb
