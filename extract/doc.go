// Package extract runs a renderer over a document and decodes the raster it
// writes, as one operation: start a session, parse the header, read the
// payload, check the renderer's verdict, and release the session on every
// path.
package extract
