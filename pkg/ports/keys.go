package ports

// KeyListener receives raw key transitions. Key names follow the DOM
// convention: single characters ("a", "1") and names such as "ArrowLeft".
type KeyListener interface {
	KeyDown(key string)
	KeyUp(key string)
}

// KeySource is a producer of key events (terminal, HTTP, window system).
type KeySource interface {
	// Attach starts delivering events to l. The returned function detaches it.
	Attach(l KeyListener) (detach func(), err error)
}
