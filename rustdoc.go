// Package rustdoc provides a documentation lookup server for Rust crates
// published on docs.rs. It speaks JSON-RPC (MCP) over stdio and exposes
// tools that fetch module overviews, search the crate-wide item index and
// render individual item pages as Markdown or JSON.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, http/, htmltomarkdown/).
package rustdoc
