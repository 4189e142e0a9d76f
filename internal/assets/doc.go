// Package assets holds the stylesheet and HTML templates for the pages a
// book generates itself: cover, table of contents, references and converted
// web pages.
//
// Assets are looked up in layers. A custom directory, when configured, is
// searched first and the embedded defaults fill in whatever it lacks, so a
// custom directory may override a single template:
//
//	{basePath}/
//	├── styles/
//	│   └── book.css
//	└── templates/
//	    ├── cover.html
//	    ├── toc.html
//	    ├── references.html
//	    └── webpage.html
//
// Custom directories are read through an os.Root, so names and symlinks
// cannot reach files outside basePath.
package assets
