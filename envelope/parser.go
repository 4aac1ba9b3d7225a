package envelope

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// DefaultBodyName is the body wrapper written by Build.
const DefaultBodyName = "SOAP-ENV:Body"

// Decoder flattens SOAP responses. The zero value matches any element whose
// local name is Body in no namespace, in a SOAP 1.1 or 1.2 envelope namespace,
// or under the SOAP-ENV prefix.
type Decoder struct {
	BodyName string
}

// Parse decodes data with the default Decoder.
func Parse(data []byte) (Node, error) {
	return Decoder{}.Decode(bytes.NewReader(data))
}

type frame struct {
	node     Node
	text     strings.Builder
	children bool
}

// finish stores the collected text. Whitespace-only text is indentation when
// the element has children and is kept as content on leaves.
func (f *frame) finish() {
	text := f.text.String()
	if text == "" || (f.children && strings.TrimSpace(text) == "") {
		return
	}
	f.node[TextKey] = text
}

// Decode reads a whole response and returns the content of its body as a
// Node. Elements outside the body are skipped. A malformed document returns
// a *SyntaxError and no tree.
func (d Decoder) Decode(r io.Reader) (Node, error) {
	if r == nil {
		return nil, &SyntaxError{Err: errors.New("nil reader")}
	}
	body := d.bodyName()

	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root       Node
		stack      []*frame
		inBody     bool
		bodyDone   bool
		sawElement bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &SyntaxError{Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawElement = true
			if !inBody {
				if !bodyDone && matchesBody(t.Name, body) {
					inBody = true
					root = Node{}
					// the body wrapper is a container even when empty
					stack = append(stack, &frame{node: root, children: true})
				}
				continue
			}
			parent := stack[len(stack)-1]
			parent.children = true
			child := Node{}
			name := t.Name.Local
			switch existing := parent.node[name].(type) {
			case Node:
				parent.node[name] = []Node{existing, child}
			case []Node:
				parent.node[name] = append(existing, child)
			default:
				parent.node[name] = child
			}
			stack = append(stack, &frame{node: child})
		case xml.CharData:
			if inBody {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			if !inBody {
				continue
			}
			top := stack[len(stack)-1]
			stack[len(stack)-1] = nil
			stack = stack[:len(stack)-1]
			top.finish()
			if len(stack) == 0 {
				inBody = false
				bodyDone = true
			}
		}
	}

	if !sawElement {
		return nil, &SyntaxError{Err: errors.New("document has no root element")}
	}
	if root == nil {
		return Node{}, nil
	}
	return root, nil
}

func (d Decoder) bodyName() QName {
	name := strings.TrimSpace(d.BodyName)
	if name == "" {
		name = DefaultBodyName
	}
	return SplitName(name)
}

func matchesBody(name xml.Name, body QName) bool {
	if name.Local != body.Local {
		return false
	}
	switch name.Space {
	case "", NamespaceEnvelope, NamespaceEnvelope12, body.Prefix:
		return true
	default:
		return false
	}
}
