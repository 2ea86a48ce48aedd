// Package kvs provides a client for a kvs server over TCP.
//
// Example:
//
//	client, err := kvs.Connect(kvs.WithPort(9999))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Set("foo", "bar")
//	val, ok, err := client.Get("foo")
package kvs
