package rdf

import ld "github.com/piprate/json-gold/ld"

// Namespaces.
const (
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
)

// RDF vocabulary.
const (
	RDFType       = ld.RDFType
	RDFFirst      = RDFNamespace + "first"
	RDFRest       = RDFNamespace + "rest"
	RDFNil        = RDFNamespace + "nil"
	RDFLangString = ld.RDFLangString
)

// XSD datatypes used by literal layouts.
const (
	XSDString       = ld.XSDString
	XSDBoolean      = ld.XSDBoolean
	XSDInteger      = ld.XSDInteger
	XSDDouble       = ld.XSDDouble
	XSDDecimal      = XSDNamespace + "decimal"
	XSDFloat        = XSDNamespace + "float"
	XSDLong         = XSDNamespace + "long"
	XSDInt          = XSDNamespace + "int"
	XSDHexBinary    = XSDNamespace + "hexBinary"
	XSDBase64Binary = XSDNamespace + "base64Binary"
	XSDAnyURI       = XSDNamespace + "anyURI"
)
