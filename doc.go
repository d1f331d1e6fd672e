// Package smuledl resolves the playable media URL of a Smule recording.
//
// Resolution is three sequential steps over one HTTP session: the recording
// page is fetched, an encrypted media token is read from one of its marker
// fields, and the token is exchanged at the site's redirect endpoint for a
// direct CDN URL taken from the Location header.
//
//	res, err := smuledl.New().ResolveURL(ctx, "https://www.smule.com/sing-recording/123_456")
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Media.URL)
//
// A 418 answer from the redirect endpoint means the request was recognised
// as automated; it is reported as errs.ErrBlocked and is never retried.
package smuledl
