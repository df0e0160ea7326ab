// Package importer turns fetched CSV text into event records and replaces
// the stored table with them.
//
// Column names differ between feed versions, so each normalized field lists
// candidate columns in priority order. The first candidate present in the
// header is chosen once per import; nothing downstream sees raw column names.
package importer
