// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dump

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// CharsetReader converts legacy encodings named in the XML declaration to
// UTF-8, for use as an xml.Decoder's CharsetReader. Bibliography dumps
// predate UTF-8 defaults; ISO-8859-1 is the usual case. The decoder only
// calls this for non-UTF-8 declarations.
func CharsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported document encoding %q", charset)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
