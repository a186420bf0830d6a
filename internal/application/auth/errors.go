package auth

// authFailMessage is the generic user-visible rejection text; the remote's
// own reason is only logged, never shown verbatim except for structured
// clientlogin errors.
const authFailMessage = "remote authentication failed"
