// Package record builds telemetry records from completed HTTP exchanges and
// encodes them for the ingestion wire format.
//
// A record is immutable once built. Request and response bodies are carried
// as text; bodies that are not valid UTF-8 cannot be represented and make
// Build fail with a CaptureError wrapping a DecodeError.
//
// Wire format (one record per line when batched):
//
//	{
//	  "version": "1.0.0-alpha",
//	  "dateCreated": 1700000000000,
//	  "executionTime": 12,
//	  "request": {
//	    "httpProtocol": "HTTP/1.1",
//	    "headers": {"Accept": ["*/*"]},
//	    "method": "GET",
//	    "body": "",
//	    "ip": "10.0.0.1",
//	    "resource": "/posts/postId",
//	    "uri": "http://api.example.com/posts/42?x=1"
//	  },
//	  "response": {
//	    "statusCode": 200,
//	    "headers": {"Content-Type": ["application/json"]},
//	    "body": "{}"
//	  }
//	}
package record

// SchemaVersion is the record schema version understood by the ingestion API.
const SchemaVersion = "1.0.0-alpha"

// TelemetryRecord describes one completed request/response exchange.
type TelemetryRecord struct {
	Version       string       `json:"version"`
	DateCreated   uint64       `json:"dateCreated"`
	ExecutionTime uint64       `json:"executionTime"`
	Request       RequestInfo  `json:"request"`
	Response      ResponseInfo `json:"response"`
}

// RequestInfo is the request half of a record.
type RequestInfo struct {
	HTTPProtocol string              `json:"httpProtocol"`
	Headers      map[string][]string `json:"headers"`
	Method       string              `json:"method"`
	Body         string              `json:"body"`
	IP           string              `json:"ip"`
	Resource     string              `json:"resource"`
	URI          string              `json:"uri"`
}

// ResponseInfo is the response half of a record.
type ResponseInfo struct {
	StatusCode int                 `json:"statusCode"`
	Headers    map[string][]string `json:"headers"`
	Body       string              `json:"body"`
}
