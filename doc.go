// Package messaging provides per-recipient message delivery and tracking.
//
// A message is written once and fanned out atomically to every recipient.
// Each recipient gets an independent state row carrying the read flag, a
// priority level, and monotonic delivery/read confirmations. The inbox
// view groups message headers by thread, newest first.
//
// Basic usage:
//
//	svc, err := messaging.NewService(messaging.WithStore(memory.New()))
//	if err != nil { ... }
//	if err := svc.Connect(ctx); err != nil { ... }
//	defer svc.Close(ctx)
//
//	alice := svc.Client("alice")
//	msg, err := alice.Send(ctx, messaging.SendRequest{
//		RecipientIDs: []string{"bob", "carol"},
//		Subject:      "standup",
//		Body:         "moved to 10am",
//	})
//
//	bob := svc.Client("bob")
//	inbox, err := bob.Inbox(ctx)        // headers grouped by thread
//	_, err = bob.MarkRead(ctx, msg.ID)  // togglable read flag
//	_, err = bob.ConfirmRead(ctx, msg.ID) // monotonic read receipt
//
// Recipients only ever see their own state. Operations on messages the
// caller is not a recipient of return ErrNotFound, whether or not the
// message exists.
//
// Storage backends live in store/postgres, store/mongo, and store/memory.
// Attachment references are opaque; resolve them with the resource
// subpackages when metadata is needed.
package messaging
