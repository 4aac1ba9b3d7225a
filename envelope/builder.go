package envelope

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/xml"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	NamespaceXSD        = "http://www.w3.org/2001/XMLSchema"
	NamespaceXSI        = "http://www.w3.org/2001/XMLSchema-instance"
	NamespaceEncoding   = "http://schemas.xmlsoap.org/soap/encoding/"
	NamespaceEnvelope   = "http://schemas.xmlsoap.org/soap/envelope/"
	NamespaceEnvelope12 = "http://www.w3.org/2003/05/soap-envelope"
)

const maxEncodeDepth = 64

const envelopeOpen = "<SOAP-ENV:Envelope\n" +
	" xmlns:xsd=\"" + NamespaceXSD + "\"\n" +
	" xmlns:xsi=\"" + NamespaceXSI + "\"\n" +
	" xmlns:SOAP-ENC=\"" + NamespaceEncoding + "\"\n" +
	" SOAP-ENV:encodingStyle=\"" + NamespaceEncoding + "\"\n" +
	" xmlns:SOAP-ENV=\"" + NamespaceEnvelope + "\">\n" +
	"  <SOAP-ENV:Body>\n    "

const envelopeClose = "\n  </SOAP-ENV:Body>\n</SOAP-ENV:Envelope>"

// Param is one named argument in an ordered argument list.
type Param struct {
	Name  string
	Value any
}

// Params keeps argument order for services that bind parameters by position.
type Params []Param

var (
	timeType          = reflect.TypeOf(time.Time{})
	paramsType        = reflect.TypeOf(Params(nil))
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Build wraps action and its arguments in a SOAP envelope.
func Build(action string, args any) ([]byte, error) {
	name := SplitName(strings.TrimSpace(action))
	if !validQName(name) {
		return nil, &EncodeError{Path: action, Reason: "invalid action name"}
	}

	var body bytes.Buffer
	w := &writer{buf: &body}
	w.open(name.String())
	if err := w.content(name.String(), reflect.ValueOf(args), 0); err != nil {
		return nil, err
	}
	w.close(name.String())

	out := make([]byte, 0, len(envelopeOpen)+body.Len()+len(envelopeClose))
	out = append(out, envelopeOpen...)
	out = append(out, body.Bytes()...)
	out = append(out, envelopeClose...)
	return out, nil
}

type writer struct {
	buf *bytes.Buffer
}

func (w *writer) open(name string) {
	w.buf.WriteByte('<')
	w.buf.WriteString(name)
	w.buf.WriteByte('>')
}

func (w *writer) close(name string) {
	w.buf.WriteString("</")
	w.buf.WriteString(name)
	w.buf.WriteByte('>')
}

func (w *writer) text(value string) {
	_ = xml.EscapeText(w.buf, []byte(value))
}

// element writes one named element; sequences fan out into repeated siblings.
func (w *writer) element(path string, key string, value reflect.Value, depth int) error {
	name := SplitName(key)
	if !validQName(name) {
		return &EncodeError{Path: path, Reason: "invalid element name " + strconv.Quote(key)}
	}
	value = indirect(value)
	if isSequence(value) {
		for i := 0; i < value.Len(); i++ {
			if err := w.element(path+"["+strconv.Itoa(i)+"]", key, value.Index(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	w.open(key)
	if err := w.content(path, value, depth+1); err != nil {
		return err
	}
	w.close(key)
	return nil
}

// content writes what goes between an element's tags.
func (w *writer) content(path string, value reflect.Value, depth int) error {
	if depth > maxEncodeDepth {
		return &EncodeError{Path: path, Reason: "arguments nested too deeply"}
	}
	value = indirect(value)
	if !value.IsValid() {
		return nil
	}

	if value.Type() == paramsType {
		for _, param := range value.Interface().(Params) {
			if err := w.element(path+"."+param.Name, param.Name, reflect.ValueOf(param.Value), depth); err != nil {
				return err
			}
		}
		return nil
	}
	if text, ok, err := scalarText(path, value); ok || err != nil {
		if err != nil {
			return err
		}
		w.text(text)
		return nil
	}

	switch value.Kind() {
	case reflect.Map:
		if value.Type().Key().Kind() != reflect.String {
			return &EncodeError{Path: path, Reason: "map keys must be strings"}
		}
		keys := make([]string, 0, value.Len())
		for _, key := range value.MapKeys() {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		for _, key := range keys {
			item := value.MapIndex(reflect.ValueOf(key).Convert(value.Type().Key()))
			if key == TextKey {
				if err := w.content(path+"."+key, item, depth+1); err != nil {
					return err
				}
				continue
			}
			if err := w.element(path+"."+key, key, item, depth); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice, reflect.Array:
		for i := 0; i < value.Len(); i++ {
			if err := w.content(path+"["+strconv.Itoa(i)+"]", value.Index(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return &EncodeError{Path: path, Reason: "unsupported value of kind " + value.Kind().String()}
	}
}

func scalarText(path string, value reflect.Value) (string, bool, error) {
	if value.Type() == timeType {
		return value.Interface().(time.Time).Format(time.RFC3339Nano), true, nil
	}
	if value.Type().Implements(textMarshalerType) {
		text, err := value.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", false, &EncodeError{Path: path, Reason: "marshal text: " + err.Error()}
		}
		return string(text), true, nil
	}
	switch value.Kind() {
	case reflect.String:
		return value.String(), true, nil
	case reflect.Bool:
		return strconv.FormatBool(value.Bool()), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(value.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(value.Uint(), 10), true, nil
	case reflect.Float32:
		return strconv.FormatFloat(value.Float(), 'f', -1, 32), true, nil
	case reflect.Float64:
		return strconv.FormatFloat(value.Float(), 'f', -1, 64), true, nil
	case reflect.Slice:
		if value.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(value.Bytes()), true, nil
		}
	}
	return "", false, nil
}

func indirect(value reflect.Value) reflect.Value {
	for value.IsValid() && (value.Kind() == reflect.Pointer || value.Kind() == reflect.Interface) {
		if value.IsNil() {
			return reflect.Value{}
		}
		value = value.Elem()
	}
	return value
}

func isSequence(value reflect.Value) bool {
	if !value.IsValid() {
		return false
	}
	switch value.Kind() {
	case reflect.Slice:
		if value.Type().Elem().Kind() == reflect.Uint8 {
			return false
		}
		return value.Type() != paramsType
	case reflect.Array:
		return true
	default:
		return false
	}
}
