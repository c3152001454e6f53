// Package testing provides a standardised conformance suite for
// implementations of the store.IStore interface.
//
// Example usage:
//
//	func Test(t *testing.T) {
//		storetesting.RunStoreTests(t, "MyStore", NewMyStore, storetesting.Options{
//			Persistent: true,
//		})
//	}
package testing
