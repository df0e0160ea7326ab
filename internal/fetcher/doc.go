// Package fetcher downloads the open-data CSV and turns its bytes into text.
//
// The portal serves UTF-8 with or without a byte order mark, and older dumps
// in Shift_JIS (cp932). Fetch tries those decodings in order and falls back to
// a lossy UTF-8 read rather than failing. Portals sometimes answer 200 with an
// HTML error or interstitial page; Fetch rejects anything that looks like HTML
// so a bad download never reaches the importer.
package fetcher
