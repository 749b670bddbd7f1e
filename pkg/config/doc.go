// Package config loads stub definitions from YAML.
//
// A configuration document is either a list of entries or a map with an
// includes key naming further files:
//
//	- description: list accounts
//	  request:
//	    url: ^/accounts/(\d+)$
//	    method: [GET, HEAD]
//	  response:
//	    status: 200
//	    file: account.json
//	- proxy-config:
//	    strategy: as-is
//	    properties:
//	      endpoint: https://origin.example.com
//
// Every document is validated against an embedded JSON Schema before it is
// decoded. Unknown keys are rejected. Relative file paths resolve against the
// directory of the file that names them.
package config
