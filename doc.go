// Package cloudpad provides a small file API over an object-storage bucket,
// gated by a single shared-secret token.
//
// The package defines the bucket capability (list, get, put, delete by key),
// the FileService that adds key validation and rename on top of it, and
// LocalBucket, which composes a metadata repository with file storage for
// self-hosted deployments.
//
// # Key Components
//
//   - Bucket: the object-store capability (memory, local, s3, minio backends)
//   - FileService: list, get, put, delete and rename operations over a Bucket
//   - LocalBucket: Bucket backed by MetaDataRepo + FileStorage
//   - GuessLanguage: editor syntax language from a key's extension
//
// # Example Usage
//
//	bucket := memory.New()
//	service, err := cloudpad.NewFileService(bucket)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Write a file
//	info, err := service.Put(ctx, "notes/todo.md", strings.NewReader("- [ ] ship"), -1, cloudpad.PutOptions{})
//
//	// Rename it (copy then delete, not atomic)
//	err = service.Rename(ctx, "notes/todo.md", "notes/done.md")
//
// See the http package for the REST API and the database package for the
// metadata backends used by LocalBucket.
package cloudpad
