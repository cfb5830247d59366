package ocr

import "strconv"

// Tesseract variables set through Input.Metadata.
const (
	TesseractPSMVariable       = "tessedit_pageseg_mode"
	TesseractWhitelistVariable = "tessedit_char_whitelist"
)

// Page segmentation modes accepted by WithTesseractPSM.
const (
	PSMAuto        = 3
	PSMSingleBlock = 6
	PSMSingleLine  = 7
	PSMSparseText  = 11
	maxPSM         = 13
)

// WithTesseractVariable sets an arbitrary Tesseract variable on the input,
// keeping any variables already present.
func WithTesseractVariable(name, value string) InputOption {
	return func(in *Input) {
		if in.Metadata == nil {
			in.Metadata = make(map[string]string)
		}
		in.Metadata[name] = value
	}
}

// WithTesseractPSM sets the page segmentation mode. Modes outside 0-13 are
// ignored.
func WithTesseractPSM(mode int) InputOption {
	if mode < 0 || mode > maxPSM {
		return func(*Input) {}
	}
	return WithTesseractVariable(TesseractPSMVariable, strconv.Itoa(mode))
}

// WithTesseractWhitelist restricts recognition to chars.
func WithTesseractWhitelist(chars string) InputOption {
	return WithTesseractVariable(TesseractWhitelistVariable, chars)
}
