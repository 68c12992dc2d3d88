// Package ingest turns dataset sources into types.Dataset values.
//
// parse.go is the CSV Parser. Parse splits on newlines and commas with no
// quoting support, trims every header and value, zips values positionally
// with the headers and drops rows whose first-column value is empty. It never
// fails; anomalies (short lines, long lines, dropped rows) are counted in
// Dataset.Stats instead. ParseQuoted (format csv-quoted) and ParseXLSX
// (format xlsx, excelize) apply the same row rules to other encodings.
//
// source.go fetches raw bytes from a local file or an http(s) URL. HTTP
// authentication (mTLS, API key, bearer, basic) is handled by a shared
// authRoundTripper.
//
// Loader combines a Source with a format; LoadPair loads the participations
// and plan datasets concurrently.
package ingest
