package sqlinline

const QCreateGalleryTable = `--sql 3f9b2c1e-5d47-4a8e-b0c6-7e21d9a4f583
create table if not exists gallery (
    id uuid primary key,
    firebase_uid text not null,
    image_url text not null,
    storage_path text not null,
    style_name text not null default '',
    color_name text not null default '',
    refine_text text not null default '',
    created_at timestamptz not null default now()
);
`

const QCreateGalleryOwnerIndex = `--sql 9c0e7a4d-21b6-4f3a-8d5e-64f1b2a9c7d0
create index if not exists gallery_owner_created_idx on gallery (firebase_uid, created_at desc);
`

const QInsertGalleryItem = `--sql b7d2e915-4c3a-4f08-9a61-0e5c8d3f2b74
insert into gallery (id, firebase_uid, image_url, storage_path, style_name, color_name, refine_text, created_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, now())
returning created_at;
`

const QListGalleryByOwner = `--sql 51e8f6a3-9b0d-4c27-a4e5-d3c1f7082b96
select id::text, firebase_uid, image_url, storage_path, style_name, color_name, refine_text, created_at
from gallery
where firebase_uid = $1::text
order by created_at desc
limit $2::int;
`
