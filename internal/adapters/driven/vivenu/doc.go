// Package vivenu implements driven.TicketSource over the Vivenu REST API.
//
// Requests are authenticated with the region's API key as a bearer token
// and throttled client-side to stay under the API's request cap. Responses
// are parsed with gjson so that ticket payloads reach the domain
// byte-for-byte as the API returned them.
package vivenu
