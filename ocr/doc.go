// Package ocr recognizes text in extracted rasters through pluggable
// engines. The interfaces are small so an engine can be a local binary, a
// native library, or a remote service. Import ocr/tesseract to install the
// Tesseract engine as the default.
package ocr
