// Package raster decodes the raw pixel-map stream a renderer writes to its
// output channel: a short mixed text/binary header (magic line, opaque
// comment line, "width height" line, max-value line) followed immediately by
// width*height*3 bytes of interleaved RGB samples. The header carries no
// payload length, so the decoder tracks the byte cursor exactly and never
// reads past the last payload byte it needs.
//
// A Decoder consumes its source strictly in order. Reads are buffered
// internally, but the observable behaviour matches a byte-at-a-time reader:
// the first byte handed to the payload is the first byte after the header.
package raster
