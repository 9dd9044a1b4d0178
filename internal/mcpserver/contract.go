package mcpserver

// NamingConventionURI is the resource URI of NamingConvention.
const NamingConventionURI = "pdfarchiver://naming-convention"

// NamingConvention describes the archive's file naming scheme for LLM
// consumers that rename or import documents.
const NamingConvention = `# PDF Archiver Naming Convention

Every archived document is a PDF whose file name carries its metadata.

## Structure

` + "```" + `
<yyyy-MM-dd>--<specification>__<tag1>_<tag2>.pdf
` + "```" + `

- **Date** is the document date (invoice date, letter date), not the scan date.
- **Specification** describes the document. Words are joined with ` + "`" + `-` + "`" + `;
  any language and umlauts are fine (e.g. ` + "`" + `Stromrechnung-März` + "`" + `).
- **Tags** are lowercase, sorted, unique and separated by ` + "`" + `_` + "`" + `. A tag
  never contains ` + "`" + `_` + "`" + `, but may contain ` + "`" + `-` + "`" + `.
- Documents are stored in a folder per year: ` + "`" + `2010/2010-05-12--example-description__tag1_tag2.pdf` + "`" + `.
- Documents whose metadata is incomplete live in ` + "`" + `untagged/` + "`" + ` until renamed.

## Rules

1. Use ` + "`" + `create_filename` + "`" + ` to build names; never assemble them by hand.
2. Use ` + "`" + `suggest_metadata` + "`" + ` before ` + "`" + `rename_document` + "`" + `: it reads the date
   and known tags from the document text.
3. A date is mandatory. Specification and tags may be left empty, in which case
   placeholders are written and the document stays marked as untagged.
4. Keep tags short and reusable (` + "`" + `bill` + "`" + `, ` + "`" + `tax` + "`" + `, ` + "`" + `insurance` + "`" + `). Check
   ` + "`" + `list_tags` + "`" + ` for existing ones before inventing new tags.

## Example

` + "```" + `
2021-03-04--Strom-Rechnung__bill_strom.pdf
` + "```" + `

Date 2021-03-04, specification "Strom-Rechnung", tags "bill" and "strom".
`
