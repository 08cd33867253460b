// Package git reports how git sees a store and the plaintext JSON files used
// with it.
//
// Checks performed:
//   - Whether the encrypted store file is tracked by git (safe either way)
//   - Whether plaintext JSON files are tracked by git (should not be)
//   - Whether plaintext JSON files are in .gitignore (should be)
package git
